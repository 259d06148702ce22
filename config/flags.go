// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import "github.com/spf13/pflag"

// FromFlags returns a source which sets keys[name] from the flag called
// name. Only flags explicitly set on the command line are applied, so
// flag defaults never override earlier sources.
func FromFlags(flags *pflag.FlagSet, keys map[string]string) Source {
	return SourceFunc(func(store Store) error {
		var err error
		flags.Visit(func(f *pflag.Flag) {
			key, ok := keys[f.Name]
			if !ok || err != nil {
				return
			}
			err = store.Set(key, f.Value.String())
		})
		return err
	})
}
