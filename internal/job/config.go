package job

import (
	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/loader"
)

// FromConfig returns the request settings shared by every split: digit
// limit, CSV encoding and atomic mode.
func FromConfig(cfg *config.Config) Request {
	if cfg == nil {
		return Request{}
	}
	return Request{
		DigitLimit: cfg.DigitLimit,
		Atomic:     cfg.Output.Atomic,
		Load:       loader.Options{CSVEncoding: cfg.CSV.Encoding},
	}
}
