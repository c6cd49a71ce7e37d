package options

import (
	"github.com/mozilla-ai/mcpfleet/internal/config"
	"github.com/mozilla-ai/mcpfleet/internal/override"
)

type CmdOption func(*CmdOptions) error

type CmdOptions struct {
	ConfigLoader   config.Loader
	OverrideLoader override.Loader
}

func defaultOptions() CmdOptions {
	return CmdOptions{
		ConfigLoader:   &config.DefaultLoader{},
		OverrideLoader: &override.DefaultLoader{},
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithConfigLoader(l config.Loader) CmdOption {
	return func(o *CmdOptions) error {
		o.ConfigLoader = l
		return nil
	}
}

func WithOverrideLoader(l override.Loader) CmdOption {
	return func(o *CmdOptions) error {
		o.OverrideLoader = l
		return nil
	}
}
