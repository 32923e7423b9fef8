package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// GlobalConfig is the configuration object stored in the GlobalConfigFile.
type GlobalConfig struct {
	// UUID identifies this installation, generated on first run. It groups
	// pushed metrics.
	UUID string `json:"uuid"`
}

type rawGlobalConfig struct {
	UUID *string `json:"uuid"`

	shouldWrite bool
}

func (c *rawGlobalConfig) read(fs afero.Fs, filename string) error {
	b, err := afero.ReadFile(fs, filename)
	if err != nil {
		return errors.Wrap(err, "read file")
	}
	err = json.Unmarshal(b, c)
	if err != nil {
		return errors.Wrap(err, "parse file")
	}
	return nil
}

func (c *rawGlobalConfig) validateKeys() error {
	// check prescence of uuid, create if doesn't exist
	if c.UUID == nil || *c.UUID == "" {
		u, err := uuid.NewV4()
		if err != nil {
			return errors.Wrap(err, "failed generating uuid")
		}
		uid := u.String()
		c.UUID = &uid
		c.shouldWrite = true
	}
	return nil
}

func (c *rawGlobalConfig) write(fs afero.Fs, filename string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal file")
	}
	err = afero.WriteFile(fs, filename, b, 0644)
	if err != nil {
		return errors.Wrap(err, "write file")
	}
	return nil
}

// setupGlobalConfig ensures that global config directory and file exists and
// reads it into the GlobalConfig object.
func (ec *ExecutionContext) setupGlobalConfig() error {
	// check if the directory name is set, else default
	if len(ec.GlobalConfigDir) == 0 {
		ec.Logger.Debug("global config directory is not pre-set, defaulting")
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "cannot get home directory")
		}
		ec.GlobalConfigDir = filepath.Join(home, GlobalConfigDirName)
		ec.Logger.Debugf("global config directory set as '%s'", ec.GlobalConfigDir)
	}

	// create the config directory
	err := ec.Fs.MkdirAll(ec.GlobalConfigDir, os.ModePerm)
	if err != nil {
		return errors.Wrap(err, "cannot create global config directory")
	}

	// check if the filename is set, else default
	if len(ec.GlobalConfigFile) == 0 {
		ec.GlobalConfigFile = filepath.Join(ec.GlobalConfigDir, GlobalConfigFileName)
		ec.Logger.Debugf("global config file set as '%s'", ec.GlobalConfigFile)
	}

	gc := &rawGlobalConfig{}
	exists, err := afero.Exists(ec.Fs, ec.GlobalConfigFile)
	if err != nil {
		return errors.Wrap(err, "cannot stat global config file")
	}
	if exists {
		ec.Logger.Debug("global config file exists, verifying contents")
		if err := gc.read(ec.Fs, ec.GlobalConfigFile); err != nil {
			return errors.Wrap(err, "reading global config file failed")
		}
	} else {
		// file does not exist, treat as first run and create it
		ec.Logger.Debug("global config file does not exist, this could be the first run, creating it...")
	}
	if err := gc.validateKeys(); err != nil {
		return errors.Wrap(err, "validating global config file failed")
	}
	if gc.shouldWrite || !exists {
		if err := gc.write(ec.Fs, ec.GlobalConfigFile); err != nil {
			return errors.Wrap(err, "writing global config file failed")
		}
		ec.Logger.Debugf("global config file written at '%s'", ec.GlobalConfigFile)
	}
	return ec.readGlobalConfig()
}

// readGlobalConfig reads the configuration from global config file env vars,
// through viper.
func (ec *ExecutionContext) readGlobalConfig() error {
	// need to get existing viper because https://github.com/spf13/viper/issues/233
	v := viper.New()
	v.SetFs(ec.Fs)
	v.SetEnvPrefix("ACEMAN")
	v.AutomaticEnv()
	v.SetConfigFile(ec.GlobalConfigFile)
	v.SetConfigType("json")
	err := v.ReadInConfig()
	if err != nil {
		return errors.Wrap(err, "cannot read global config from file/env")
	}
	if ec.GlobalConfig == nil {
		ec.Logger.Debugf("global config is not pre-set, reading from current env")
		ec.GlobalConfig = &GlobalConfig{
			UUID: v.GetString("uuid"),
		}
	} else {
		ec.Logger.Debugf("global config is pre-set to %#v", ec.GlobalConfig)
	}
	ec.Logger.Debugf("global config: uuid: %v", ec.GlobalConfig.UUID)
	return nil
}
