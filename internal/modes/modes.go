// Package modes wraps the transaction engine with per-mode façades that
// drive the instrument the way its interactive modes are used: configure
// once, then exchange data. Each façade refuses data operations until its
// Configure has succeeded, so a misordered program fails locally instead
// of on the bus.
package modes

import (
	"errors"

	"github.com/hexliner/gobpio/internal/bpio"
)

var ErrNotConfigured = errors.New("modes: configure the mode first")

// Power sets the programmable supply as part of a mode configuration. The
// zero value leaves the supply untouched; turning it off is an explicit
// configuration action on the raw request, not a façade concern.
type Power struct {
	Enable     bool
	Millivolts uint16
	Milliamps  uint16
}

func applyPower(req *bpio.ConfigurationRequest, p Power) {
	if !p.Enable {
		return
	}
	req.PSUEnable = true
	req.PSUMillivolts = p.Millivolts
	req.PSUMilliamps = p.Milliamps
}
