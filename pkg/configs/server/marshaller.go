package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvSignKey overrides `auth.signKey` of the config file.
const EnvSignKey = "WLCONF_SIGN_KEY"

// load wlconfd config from a file.
//
// args:
//   - filepath: filepath refers a config file.
//
// returns *ServerConfig, error:
//
//	When loading success, returns `(*ServerConfig, nil)`.
//	Otherwise, returns `(nil, error)`.
func LoadServerConfig(filepath string) (*ServerConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	conf, err := Unmarshal(content)
	if err != nil {
		return nil, err
	}
	if key := os.Getenv(EnvSignKey); key != "" {
		conf.auth = &AuthConfig{signKey: key}
	}
	return conf, nil
}

// Unmarshal parses and seals config.
//
// Misconfigurations are reported as error, not as panic.
func Unmarshal(conf []byte) (out *ServerConfig, err error) {
	var _out *ServerConfigMarshall
	if err := yaml.Unmarshal(conf, &_out); err != nil {
		return nil, err
	}
	if _out == nil {
		return nil, fmt.Errorf("config is empty")
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("misconfiguration: %v", r)
		}
	}()
	return TrySeal(_out), nil
}
