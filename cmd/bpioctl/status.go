package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/hexliner/gobpio/internal/bpio"
)

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cf := registerCommon(fs)
	_ = fs.Parse(args)

	s, err := openSession(cf)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.client.Status(bpio.StatusRequest{})
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func printStatus(st *bpio.StatusResponse) {
	fmt.Printf("Schema version:   %d.%d\n", st.VersionSchemaMajor, st.VersionSchemaMinor)
	fmt.Printf("Firmware version: %d.%d (%s, %s)\n",
		st.VersionFirmwareMajor, st.VersionFirmwareMinor, st.FirmwareGitHash, st.FirmwareDate)
	fmt.Printf("Current mode:     %s\n", st.ModeCurrent)
	fmt.Printf("Modes available:  %s\n", strings.Join(st.ModesAvailable, " "))
	if st.PSUEnabled {
		fmt.Printf("PSU:              on, set %dmV/%dmA, measured %dmV/%dmA\n",
			st.PSUSetMillivolts, st.PSUSetMilliamps,
			st.PSUMeasuredMillivolts, st.PSUMeasuredMilliamps)
	} else {
		fmt.Printf("PSU:              off\n")
	}
	fmt.Printf("Pullups:          %s\n", onOff(st.PullupEnabled))
	if len(st.ADCMillivolts) > 0 {
		parts := make([]string, len(st.ADCMillivolts))
		for i, mv := range st.ADCMillivolts {
			parts[i] = fmt.Sprintf("IO%d=%dmV", i, mv)
		}
		fmt.Printf("ADC:              %s\n", strings.Join(parts, " "))
	}
	fmt.Printf("IO:               dir=%08b val=%08b\n", st.IODirections, st.IOValues)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// hexBytes renders data as uppercase space-separated hex pairs.
func hexBytes(data []byte) string {
	if len(data) == 0 {
		return "(none)"
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
