package bpio

import (
	"fmt"

	"github.com/hexliner/gobpio/internal/bpio/wire"
)

// Packet discriminants, one per union variant, in schema declaration order.
// Requests and responses number independently.
const (
	reqStatus        byte = 1
	reqConfiguration byte = 2
	reqData          byte = 3
)

const (
	respError         byte = 1
	respStatus        byte = 2
	respConfiguration byte = 3
	respData          byte = 4
)

// ConfigurationRequest field IDs.
const (
	cfgMode           uint8 = 1
	cfgSpeed          uint8 = 2
	cfgDataBits       uint8 = 3
	cfgParityEven     uint8 = 4
	cfgStopBits       uint8 = 5
	cfgFlowControl    uint8 = 6
	cfgSignalInvert   uint8 = 7
	cfgClockStretch   uint8 = 8
	cfgClockPolarity  uint8 = 9
	cfgClockPhase     uint8 = 10
	cfgChipSelectIdle uint8 = 11
	cfgSubmode        uint8 = 12
	cfgPSUEnable      uint8 = 13
	cfgPSUDisable     uint8 = 14
	cfgPSUMillivolts  uint8 = 15
	cfgPSUMilliamps   uint8 = 16
	cfgPullupEnable   uint8 = 17
	cfgPullupDisable  uint8 = 18
)

// DataRequest field IDs.
const (
	datStartMain uint8 = 1
	datStartAlt  uint8 = 2
	datStopMain  uint8 = 3
	datStopAlt   uint8 = 4
	datWrite     uint8 = 5
	datBytesRead uint8 = 6
)

// StatusRequest field IDs.
const (
	stqVersion uint8 = 1
	stqMode    uint8 = 2
	stqPSU     uint8 = 3
	stqPullup  uint8 = 4
	stqIO      uint8 = 5
	stqADC     uint8 = 6
)

// Response field IDs. Every response reserves 1 for its in-band error
// string; ErrorResponse uses it for its required message.
const (
	rspError uint8 = 1

	datRead uint8 = 2

	stsSchemaMajor   uint8 = 2
	stsSchemaMinor   uint8 = 3
	stsFirmwareMajor uint8 = 4
	stsFirmwareMinor uint8 = 5
	stsGitHash       uint8 = 6
	stsDate          uint8 = 7
	stsModeAvailable uint8 = 8
	stsModeCurrent   uint8 = 9
	stsPSUEnabled    uint8 = 10
	stsPSUSetMV      uint8 = 11
	stsPSUSetMA      uint8 = 12
	stsPSUMeasuredMV uint8 = 13
	stsPSUMeasuredMA uint8 = 14
	stsPullupEnabled uint8 = 15
	stsADCMillivolts uint8 = 16
	stsIODirections  uint8 = 17
	stsIOValues      uint8 = 18
)

// EncodeRequest appends the encoded request packet to dst: discriminant,
// version pair, then fields. Zero-valued fields are omitted.
func EncodeRequest(dst []byte, v Version, req Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return dst, err
	}
	var disc byte
	var fields []wire.Field
	switch r := req.(type) {
	case *StatusRequest:
		disc = reqStatus
		fields = statusRequestFields(r)
	case *ConfigurationRequest:
		disc = reqConfiguration
		fields = configurationRequestFields(r)
	case *DataRequest:
		disc = reqData
		fields = dataRequestFields(r)
	default:
		return dst, fmt.Errorf("bpio: unsupported request type %T", req)
	}
	dst = append(dst, disc, v.Major, v.Minor)
	return wire.EncodeFields(dst, fields)
}

// DecodeRequest parses a request packet as the device side sees it. The
// version is returned for the handler to accept or reject; an unknown
// discriminant or malformed field set is a *DecodeError.
func DecodeRequest(buf []byte) (RequestPacket, error) {
	if len(buf) < 3 {
		return RequestPacket{}, &DecodeError{Reason: "short request envelope"}
	}
	pkt := RequestPacket{Version: Version{Major: buf[1], Minor: buf[2]}}
	fields, err := wire.DecodeFields(buf[3:])
	if err != nil {
		return RequestPacket{}, &DecodeError{Reason: "request fields", Err: err}
	}
	switch buf[0] {
	case reqStatus:
		pkt.Request, err = decodeStatusRequest(fields)
	case reqConfiguration:
		pkt.Request, err = decodeConfigurationRequest(fields)
	case reqData:
		pkt.Request, err = decodeDataRequest(fields)
	default:
		return RequestPacket{}, &DecodeError{Reason: fmt.Sprintf("unknown request discriminant %d", buf[0])}
	}
	if err != nil {
		return RequestPacket{}, err
	}
	return pkt, nil
}

// EncodeResponse appends the encoded response packet to dst: discriminant,
// then fields.
func EncodeResponse(dst []byte, resp Response) ([]byte, error) {
	var disc byte
	var fields []wire.Field
	switch r := resp.(type) {
	case *ErrorResponse:
		if r.Message == "" {
			return dst, fmt.Errorf("bpio: error response missing message")
		}
		disc = respError
		fields = []wire.Field{wire.NewString(rspError, r.Message)}
	case *StatusResponse:
		disc = respStatus
		fields = statusResponseFields(r)
	case *ConfigurationResponse:
		disc = respConfiguration
		if r.Error != "" {
			fields = []wire.Field{wire.NewString(rspError, r.Error)}
		}
	case *DataResponse:
		disc = respData
		fields = dataResponseFields(r)
	default:
		return dst, fmt.Errorf("bpio: unsupported response type %T", resp)
	}
	dst = append(dst, disc)
	return wire.EncodeFields(dst, fields)
}

// DecodeResponse parses a response packet. Unknown field IDs are skipped so
// newer firmware stays readable; an unknown discriminant is a *DecodeError.
func DecodeResponse(buf []byte) (Response, error) {
	if len(buf) == 0 {
		return nil, &DecodeError{Reason: "empty response payload"}
	}
	fields, err := wire.DecodeFields(buf[1:])
	if err != nil {
		return nil, &DecodeError{Reason: "response fields", Err: err}
	}
	switch buf[0] {
	case respError:
		return decodeErrorResponse(fields)
	case respStatus:
		return decodeStatusResponse(fields)
	case respConfiguration:
		return decodeConfigurationResponse(fields)
	case respData:
		return decodeDataResponse(fields)
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown response discriminant %d", buf[0])}
	}
}

func configurationRequestFields(r *ConfigurationRequest) []wire.Field {
	fields := make([]wire.Field, 0, 18)
	fields = append(fields, wire.NewString(cfgMode, r.Mode))
	if r.Speed != 0 {
		fields = append(fields, wire.NewU32(cfgSpeed, r.Speed))
	}
	if r.DataBits != 0 {
		fields = append(fields, wire.NewU8(cfgDataBits, r.DataBits))
	}
	if r.ParityEven {
		fields = append(fields, wire.NewBool(cfgParityEven, true))
	}
	if r.StopBits != 0 {
		fields = append(fields, wire.NewU8(cfgStopBits, r.StopBits))
	}
	if r.FlowControl {
		fields = append(fields, wire.NewBool(cfgFlowControl, true))
	}
	if r.SignalInvert {
		fields = append(fields, wire.NewBool(cfgSignalInvert, true))
	}
	if r.ClockStretch {
		fields = append(fields, wire.NewBool(cfgClockStretch, true))
	}
	if r.ClockPolarity {
		fields = append(fields, wire.NewBool(cfgClockPolarity, true))
	}
	if r.ClockPhase {
		fields = append(fields, wire.NewBool(cfgClockPhase, true))
	}
	if r.ChipSelectIdle {
		fields = append(fields, wire.NewBool(cfgChipSelectIdle, true))
	}
	if r.Submode != 0 {
		fields = append(fields, wire.NewU8(cfgSubmode, r.Submode))
	}
	if r.PSUEnable {
		fields = append(fields, wire.NewBool(cfgPSUEnable, true))
	}
	if r.PSUDisable {
		fields = append(fields, wire.NewBool(cfgPSUDisable, true))
	}
	if r.PSUMillivolts != 0 {
		fields = append(fields, wire.NewU16(cfgPSUMillivolts, r.PSUMillivolts))
	}
	if r.PSUMilliamps != 0 {
		fields = append(fields, wire.NewU16(cfgPSUMilliamps, r.PSUMilliamps))
	}
	if r.PullupEnable {
		fields = append(fields, wire.NewBool(cfgPullupEnable, true))
	}
	if r.PullupDisable {
		fields = append(fields, wire.NewBool(cfgPullupDisable, true))
	}
	return fields
}

func decodeConfigurationRequest(fields []wire.Field) (*ConfigurationRequest, error) {
	r := &ConfigurationRequest{}
	mode, ok, err := getString(fields, cfgMode, "configuration.mode")
	if err != nil {
		return nil, err
	}
	if !ok || mode == "" {
		return nil, &DecodeError{Reason: "configuration request missing mode"}
	}
	r.Mode = mode
	if r.Speed, _, err = getU32(fields, cfgSpeed, "configuration.speed"); err != nil {
		return nil, err
	}
	if r.DataBits, _, err = getU8(fields, cfgDataBits, "configuration.data_bits"); err != nil {
		return nil, err
	}
	if r.ParityEven, _, err = getBool(fields, cfgParityEven, "configuration.parity_even"); err != nil {
		return nil, err
	}
	if r.StopBits, _, err = getU8(fields, cfgStopBits, "configuration.stop_bits"); err != nil {
		return nil, err
	}
	if r.FlowControl, _, err = getBool(fields, cfgFlowControl, "configuration.flow_control"); err != nil {
		return nil, err
	}
	if r.SignalInvert, _, err = getBool(fields, cfgSignalInvert, "configuration.signal_invert"); err != nil {
		return nil, err
	}
	if r.ClockStretch, _, err = getBool(fields, cfgClockStretch, "configuration.clock_stretch"); err != nil {
		return nil, err
	}
	if r.ClockPolarity, _, err = getBool(fields, cfgClockPolarity, "configuration.clock_polarity"); err != nil {
		return nil, err
	}
	if r.ClockPhase, _, err = getBool(fields, cfgClockPhase, "configuration.clock_phase"); err != nil {
		return nil, err
	}
	if r.ChipSelectIdle, _, err = getBool(fields, cfgChipSelectIdle, "configuration.chip_select_idle"); err != nil {
		return nil, err
	}
	if r.Submode, _, err = getU8(fields, cfgSubmode, "configuration.submode"); err != nil {
		return nil, err
	}
	if r.PSUEnable, _, err = getBool(fields, cfgPSUEnable, "configuration.psu_enable"); err != nil {
		return nil, err
	}
	if r.PSUDisable, _, err = getBool(fields, cfgPSUDisable, "configuration.psu_disable"); err != nil {
		return nil, err
	}
	if r.PSUMillivolts, _, err = getU16(fields, cfgPSUMillivolts, "configuration.psu_millivolts"); err != nil {
		return nil, err
	}
	if r.PSUMilliamps, _, err = getU16(fields, cfgPSUMilliamps, "configuration.psu_milliamps"); err != nil {
		return nil, err
	}
	if r.PullupEnable, _, err = getBool(fields, cfgPullupEnable, "configuration.pullup_enable"); err != nil {
		return nil, err
	}
	if r.PullupDisable, _, err = getBool(fields, cfgPullupDisable, "configuration.pullup_disable"); err != nil {
		return nil, err
	}
	return r, nil
}

func dataRequestFields(r *DataRequest) []wire.Field {
	fields := make([]wire.Field, 0, 6)
	if r.StartMain {
		fields = append(fields, wire.NewBool(datStartMain, true))
	}
	if r.StartAlt {
		fields = append(fields, wire.NewBool(datStartAlt, true))
	}
	if r.StopMain {
		fields = append(fields, wire.NewBool(datStopMain, true))
	}
	if r.StopAlt {
		fields = append(fields, wire.NewBool(datStopAlt, true))
	}
	if len(r.DataWrite) > 0 {
		fields = append(fields, wire.NewBytes(datWrite, r.DataWrite))
	}
	if r.BytesRead != 0 {
		fields = append(fields, wire.NewU16(datBytesRead, r.BytesRead))
	}
	return fields
}

func decodeDataRequest(fields []wire.Field) (*DataRequest, error) {
	r := &DataRequest{}
	var err error
	if r.StartMain, _, err = getBool(fields, datStartMain, "data.start_main"); err != nil {
		return nil, err
	}
	if r.StartAlt, _, err = getBool(fields, datStartAlt, "data.start_alt"); err != nil {
		return nil, err
	}
	if r.StopMain, _, err = getBool(fields, datStopMain, "data.stop_main"); err != nil {
		return nil, err
	}
	if r.StopAlt, _, err = getBool(fields, datStopAlt, "data.stop_alt"); err != nil {
		return nil, err
	}
	if r.DataWrite, _, err = getBytes(fields, datWrite, "data.write"); err != nil {
		return nil, err
	}
	if r.BytesRead, _, err = getU16(fields, datBytesRead, "data.bytes_read"); err != nil {
		return nil, err
	}
	return r, nil
}

func statusRequestFields(r *StatusRequest) []wire.Field {
	fields := make([]wire.Field, 0, 6)
	if r.QueryVersion {
		fields = append(fields, wire.NewBool(stqVersion, true))
	}
	if r.QueryMode {
		fields = append(fields, wire.NewBool(stqMode, true))
	}
	if r.QueryPSU {
		fields = append(fields, wire.NewBool(stqPSU, true))
	}
	if r.QueryPullup {
		fields = append(fields, wire.NewBool(stqPullup, true))
	}
	if r.QueryIO {
		fields = append(fields, wire.NewBool(stqIO, true))
	}
	if r.QueryADC {
		fields = append(fields, wire.NewBool(stqADC, true))
	}
	return fields
}

func decodeStatusRequest(fields []wire.Field) (*StatusRequest, error) {
	r := &StatusRequest{}
	var err error
	if r.QueryVersion, _, err = getBool(fields, stqVersion, "status.query_version"); err != nil {
		return nil, err
	}
	if r.QueryMode, _, err = getBool(fields, stqMode, "status.query_mode"); err != nil {
		return nil, err
	}
	if r.QueryPSU, _, err = getBool(fields, stqPSU, "status.query_psu"); err != nil {
		return nil, err
	}
	if r.QueryPullup, _, err = getBool(fields, stqPullup, "status.query_pullup"); err != nil {
		return nil, err
	}
	if r.QueryIO, _, err = getBool(fields, stqIO, "status.query_io"); err != nil {
		return nil, err
	}
	if r.QueryADC, _, err = getBool(fields, stqADC, "status.query_adc"); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeErrorResponse(fields []wire.Field) (*ErrorResponse, error) {
	msg, ok, err := getString(fields, rspError, "error.message")
	if err != nil {
		return nil, err
	}
	if !ok || msg == "" {
		return nil, &DecodeError{Reason: "error response missing message"}
	}
	return &ErrorResponse{Message: msg}, nil
}

func decodeConfigurationResponse(fields []wire.Field) (*ConfigurationResponse, error) {
	msg, _, err := getString(fields, rspError, "configuration.error")
	if err != nil {
		return nil, err
	}
	return &ConfigurationResponse{Error: msg}, nil
}

func dataResponseFields(r *DataResponse) []wire.Field {
	fields := make([]wire.Field, 0, 2)
	if r.Error != "" {
		fields = append(fields, wire.NewString(rspError, r.Error))
	}
	if len(r.DataRead) > 0 {
		fields = append(fields, wire.NewBytes(datRead, r.DataRead))
	}
	return fields
}

func decodeDataResponse(fields []wire.Field) (*DataResponse, error) {
	r := &DataResponse{}
	var err error
	if r.Error, _, err = getString(fields, rspError, "data.error"); err != nil {
		return nil, err
	}
	if r.DataRead, _, err = getBytes(fields, datRead, "data.read"); err != nil {
		return nil, err
	}
	return r, nil
}

func statusResponseFields(r *StatusResponse) []wire.Field {
	fields := make([]wire.Field, 0, 16)
	if r.Error != "" {
		fields = append(fields, wire.NewString(rspError, r.Error))
	}
	if r.VersionSchemaMajor != 0 {
		fields = append(fields, wire.NewU16(stsSchemaMajor, r.VersionSchemaMajor))
	}
	if r.VersionSchemaMinor != 0 {
		fields = append(fields, wire.NewU16(stsSchemaMinor, r.VersionSchemaMinor))
	}
	if r.VersionFirmwareMajor != 0 {
		fields = append(fields, wire.NewU16(stsFirmwareMajor, r.VersionFirmwareMajor))
	}
	if r.VersionFirmwareMinor != 0 {
		fields = append(fields, wire.NewU16(stsFirmwareMinor, r.VersionFirmwareMinor))
	}
	if r.FirmwareGitHash != "" {
		fields = append(fields, wire.NewString(stsGitHash, r.FirmwareGitHash))
	}
	if r.FirmwareDate != "" {
		fields = append(fields, wire.NewString(stsDate, r.FirmwareDate))
	}
	for _, mode := range r.ModesAvailable {
		fields = append(fields, wire.NewString(stsModeAvailable, mode))
	}
	if r.ModeCurrent != "" {
		fields = append(fields, wire.NewString(stsModeCurrent, r.ModeCurrent))
	}
	if r.PSUEnabled {
		fields = append(fields, wire.NewBool(stsPSUEnabled, true))
	}
	if r.PSUSetMillivolts != 0 {
		fields = append(fields, wire.NewU16(stsPSUSetMV, r.PSUSetMillivolts))
	}
	if r.PSUSetMilliamps != 0 {
		fields = append(fields, wire.NewU16(stsPSUSetMA, r.PSUSetMilliamps))
	}
	if r.PSUMeasuredMillivolts != 0 {
		fields = append(fields, wire.NewU16(stsPSUMeasuredMV, r.PSUMeasuredMillivolts))
	}
	if r.PSUMeasuredMilliamps != 0 {
		fields = append(fields, wire.NewU16(stsPSUMeasuredMA, r.PSUMeasuredMilliamps))
	}
	if r.PullupEnabled {
		fields = append(fields, wire.NewBool(stsPullupEnabled, true))
	}
	for _, mv := range r.ADCMillivolts {
		fields = append(fields, wire.NewU16(stsADCMillivolts, mv))
	}
	if r.IODirections != 0 {
		fields = append(fields, wire.NewU8(stsIODirections, r.IODirections))
	}
	if r.IOValues != 0 {
		fields = append(fields, wire.NewU8(stsIOValues, r.IOValues))
	}
	return fields
}

func decodeStatusResponse(fields []wire.Field) (*StatusResponse, error) {
	r := &StatusResponse{}
	var err error
	if r.Error, _, err = getString(fields, rspError, "status.error"); err != nil {
		return nil, err
	}
	if r.VersionSchemaMajor, _, err = getU16(fields, stsSchemaMajor, "status.schema_major"); err != nil {
		return nil, err
	}
	if r.VersionSchemaMinor, _, err = getU16(fields, stsSchemaMinor, "status.schema_minor"); err != nil {
		return nil, err
	}
	if r.VersionFirmwareMajor, _, err = getU16(fields, stsFirmwareMajor, "status.firmware_major"); err != nil {
		return nil, err
	}
	if r.VersionFirmwareMinor, _, err = getU16(fields, stsFirmwareMinor, "status.firmware_minor"); err != nil {
		return nil, err
	}
	if r.FirmwareGitHash, _, err = getString(fields, stsGitHash, "status.git_hash"); err != nil {
		return nil, err
	}
	if r.FirmwareDate, _, err = getString(fields, stsDate, "status.date"); err != nil {
		return nil, err
	}
	for _, f := range wire.All(fields, stsModeAvailable) {
		mode, serr := f.String()
		if serr != nil {
			return nil, &DecodeError{Reason: "field status.mode_available", Err: serr}
		}
		r.ModesAvailable = append(r.ModesAvailable, mode)
	}
	if r.ModeCurrent, _, err = getString(fields, stsModeCurrent, "status.mode_current"); err != nil {
		return nil, err
	}
	if r.PSUEnabled, _, err = getBool(fields, stsPSUEnabled, "status.psu_enabled"); err != nil {
		return nil, err
	}
	if r.PSUSetMillivolts, _, err = getU16(fields, stsPSUSetMV, "status.psu_set_mv"); err != nil {
		return nil, err
	}
	if r.PSUSetMilliamps, _, err = getU16(fields, stsPSUSetMA, "status.psu_set_ma"); err != nil {
		return nil, err
	}
	if r.PSUMeasuredMillivolts, _, err = getU16(fields, stsPSUMeasuredMV, "status.psu_measured_mv"); err != nil {
		return nil, err
	}
	if r.PSUMeasuredMilliamps, _, err = getU16(fields, stsPSUMeasuredMA, "status.psu_measured_ma"); err != nil {
		return nil, err
	}
	if r.PullupEnabled, _, err = getBool(fields, stsPullupEnabled, "status.pullup_enabled"); err != nil {
		return nil, err
	}
	for _, f := range wire.All(fields, stsADCMillivolts) {
		mv, serr := f.U16()
		if serr != nil {
			return nil, &DecodeError{Reason: "field status.adc_millivolts", Err: serr}
		}
		r.ADCMillivolts = append(r.ADCMillivolts, mv)
	}
	if r.IODirections, _, err = getU8(fields, stsIODirections, "status.io_directions"); err != nil {
		return nil, err
	}
	if r.IOValues, _, err = getU8(fields, stsIOValues, "status.io_values"); err != nil {
		return nil, err
	}
	return r, nil
}

func getString(fields []wire.Field, id uint8, name string) (string, bool, error) {
	f, ok := wire.Get(fields, id)
	if !ok {
		return "", false, nil
	}
	v, err := f.String()
	if err != nil {
		return "", false, &DecodeError{Reason: "field " + name, Err: err}
	}
	return v, true, nil
}

func getBytes(fields []wire.Field, id uint8, name string) ([]byte, bool, error) {
	f, ok := wire.Get(fields, id)
	if !ok {
		return nil, false, nil
	}
	v, err := f.Bytes()
	if err != nil {
		return nil, false, &DecodeError{Reason: "field " + name, Err: err}
	}
	return v, true, nil
}

func getBool(fields []wire.Field, id uint8, name string) (bool, bool, error) {
	f, ok := wire.Get(fields, id)
	if !ok {
		return false, false, nil
	}
	v, err := f.Bool()
	if err != nil {
		return false, false, &DecodeError{Reason: "field " + name, Err: err}
	}
	return v, true, nil
}

func getU8(fields []wire.Field, id uint8, name string) (uint8, bool, error) {
	f, ok := wire.Get(fields, id)
	if !ok {
		return 0, false, nil
	}
	v, err := f.U8()
	if err != nil {
		return 0, false, &DecodeError{Reason: "field " + name, Err: err}
	}
	return v, true, nil
}

func getU16(fields []wire.Field, id uint8, name string) (uint16, bool, error) {
	f, ok := wire.Get(fields, id)
	if !ok {
		return 0, false, nil
	}
	v, err := f.U16()
	if err != nil {
		return 0, false, &DecodeError{Reason: "field " + name, Err: err}
	}
	return v, true, nil
}

func getU32(fields []wire.Field, id uint8, name string) (uint32, bool, error) {
	f, ok := wire.Get(fields, id)
	if !ok {
		return 0, false, nil
	}
	v, err := f.U32()
	if err != nil {
		return 0, false, &DecodeError{Reason: "field " + name, Err: err}
	}
	return v, true, nil
}
