package config

import (
	"fmt"

	"github.com/mrsinham/randimage/internal/encode"
	"github.com/mrsinham/randimage/internal/pixel"
	"github.com/mrsinham/randimage/internal/random"
)

// Request converts the settings into a generation request. Seed wins over
// SeedPhrase; with neither, the request carries no seed.
func (g Generate) Request() (pixel.Request, error) {
	mode, err := pixel.ParseColorMode(g.Mode)
	if err != nil {
		return pixel.Request{}, err
	}
	depth, err := pixel.ParseDepth(fmt.Sprint(g.Depth))
	if err != nil {
		return pixel.Request{}, err
	}
	alg, err := random.ParseAlgorithm(g.Algorithm)
	if err != nil {
		return pixel.Request{}, err
	}
	req := pixel.Request{
		Width:       g.Width,
		Height:      g.Height,
		Mode:        mode,
		Depth:       depth,
		OpaqueAlpha: g.OpaqueAlpha,
		Algorithm:   alg,
	}
	switch {
	case g.Seed != "":
		seed, err := random.ParseSeed(g.Seed)
		if err != nil {
			return pixel.Request{}, err
		}
		req = req.WithSeed(seed)
	case g.SeedPhrase != "":
		req = req.WithSeed(random.SeedFromPhrase(g.SeedPhrase))
	}
	return req, nil
}

// OutputFormat returns Format when set, else the format implied by the
// output extension, else PNG.
func (g Generate) OutputFormat() (encode.Format, error) {
	if g.Format != "" {
		return encode.ParseFormat(g.Format)
	}
	if f, ok := encode.FormatFromPath(g.Output); ok {
		return f, nil
	}
	return encode.PNG, nil
}

// EncodeOptions returns the encoder tuning.
func (g Generate) EncodeOptions() (encode.Options, error) {
	c, err := encode.ParseCompression(g.Compression)
	if err != nil {
		return encode.Options{}, err
	}
	f, err := encode.ParseFilter(g.Filter)
	if err != nil {
		return encode.Options{}, err
	}
	return encode.Options{Compression: c, Filter: f}, nil
}
