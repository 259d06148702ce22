// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

// Map is an ordinary map[string]any but implements the [Source] interface.
// Nested maps become dotted keys.
type Map map[string]any

// Apply implements the [Source] interface.
func (m Map) Apply(store Store) error {
	return walkMap(store, "", m)
}

func walkMap(store Store, prefix string, m map[string]any) error {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		var err error
		switch x := v.(type) {
		case map[string]any:
			err = walkMap(store, key, x)
		case Map:
			err = walkMap(store, key, x)
		default:
			err = store.Set(key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
