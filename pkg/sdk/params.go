package sdk

import (
	"fmt"
	"strconv"
)

// BoolParam is a readable and writable boolean parameter.
type BoolParam struct {
	c    *Client
	name string
}

// Name returns the full parameter path.
func (p BoolParam) Name() string { return p.name }

// Get reads the parameter.
func (p BoolParam) Get() (bool, error) {
	raw, err := p.c.ParamRef(p.name)
	if err != nil {
		return false, err
	}
	return parseBool(raw)
}

// Set writes the parameter.
func (p BoolParam) Set(v bool) error {
	return p.c.ParamSet(p.name, formatBool(v))
}

// BoolReading is a read-only boolean parameter.
type BoolReading struct {
	c    *Client
	name string
}

// Name returns the full parameter path.
func (p BoolReading) Name() string { return p.name }

// Get reads the parameter.
func (p BoolReading) Get() (bool, error) {
	raw, err := p.c.ParamRef(p.name)
	if err != nil {
		return false, err
	}
	return parseBool(raw)
}

// FloatParam is a readable and writable real-valued parameter.
type FloatParam struct {
	c    *Client
	name string
}

// Name returns the full parameter path.
func (p FloatParam) Name() string { return p.name }

// Get reads the parameter.
func (p FloatParam) Get() (float64, error) {
	raw, err := p.c.ParamRef(p.name)
	if err != nil {
		return 0, err
	}
	return parseFloat(raw)
}

// Set writes the parameter.
func (p FloatParam) Set(v float64) error {
	return p.c.ParamSet(p.name, formatFloat(v))
}

// FloatReading is a read-only real-valued parameter.
type FloatReading struct {
	c    *Client
	name string
}

// Name returns the full parameter path.
func (p FloatReading) Name() string { return p.name }

// Get reads the parameter.
func (p FloatReading) Get() (float64, error) {
	raw, err := p.c.ParamRef(p.name)
	if err != nil {
		return 0, err
	}
	return parseFloat(raw)
}

func parseBool(raw string) (bool, error) {
	switch raw {
	case "#t":
		return true, nil
	case "#f":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

func formatBool(v bool) string {
	if v {
		return "#t"
	}
	return "#f"
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
