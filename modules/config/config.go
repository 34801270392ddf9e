package config

import (
	"encoding/json"
	"io"
	"os"
	"path"
	"reflect"

	"ballot-node/lib/utils"

	"github.com/chebyrash/promise"
)

// Config is a JSON file backed configuration value. The file lives under
// CONFIG_DIR and is named after the config struct's type name, so each
// concern (db, chain, api, ...) gets its own document on disk.
type Config[T any] struct {
	defaultValue T

	loaded bool
	value  T
}

const DATA_DIR = "data"
const CONFIG_DIR = DATA_DIR + "/config"

func New[T any](defaultValue T) *Config[T] {
	return &Config[T]{defaultValue: defaultValue}
}

func (c *Config[T]) filePath() string {
	name := reflect.TypeFor[T]().Name()
	return path.Join(CONFIG_DIR, name+".json")
}

func (c *Config[T]) Init() error {
	f, err := os.Open(c.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			err = c.Update(func(t *T) {
				*t = c.defaultValue
			})
			if err != nil {
				return err
			}
		} else {
			return err
		}
	} else {
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		err = json.Unmarshal(b, &c.value)
		if err != nil {
			return err
		}
	}
	c.loaded = true
	return nil
}

func (c *Config[T]) Start() *promise.Promise[any] {
	return utils.PromiseResolve[any](nil)
}

func (c *Config[T]) Stop() error {
	return nil
}

func (c *Config[T]) Get() T {
	return c.value
}

// Update applies the updater to a copy of the current value, persists it and
// only then swaps it in.
func (c *Config[T]) Update(updater func(*T)) error {
	temp := c.value
	if !c.loaded {
		// Pre-Init updates (env overrides in main) start from the defaults
		// so untouched fields are not zeroed in the persisted file.
		temp = c.defaultValue
	}
	updater(&temp)
	b, err := json.MarshalIndent(temp, "", "  ")
	if err != nil {
		return err
	}
	err = os.MkdirAll(path.Dir(c.filePath()), 0755)
	if err != nil {
		return err
	}
	err = os.WriteFile(c.filePath(), b, 0644)
	if err != nil {
		return err
	}
	c.value = temp
	return nil
}
