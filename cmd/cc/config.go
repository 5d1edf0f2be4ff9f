package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is cc64's resolved configuration: command-line flags layered
// over a YAML config file layered over CC64_-prefixed environment
// variables, in viper's usual precedence order.
type Config struct {
	Output      string   `mapstructure:"output"`
	IncludeDirs []string `mapstructure:"include_dirs"`
	Defines     []string `mapstructure:"defines"`
	Target      string   `mapstructure:"target"`
	LogLevel    string   `mapstructure:"log_level"`
}

// defineFlags registers cc64's flags on fs, once, before cobra parses
// os.Args.
func defineFlags(fs *pflag.FlagSet) {
	fs.StringP("output", "o", "a.o", "output object file path")
	fs.StringArrayP("include", "I", nil, "add a directory to the #include search path")
	fs.StringArrayP("define", "D", nil, "predefine a macro (name or name=value)")
	fs.StringP("target", "T", "small", "code model: small or large")
	fs.String("config", "", "path to a YAML config file")
	fs.String("log-level", "WARN", "log level: DEBUG, INFO, WARN, or ERROR")
}

// loadConfig merges fs's already-parsed flags, CC64_-prefixed environment
// variables, and (if named by --config or found as ./cc64.yaml) a YAML
// config file into one Config, in viper's usual flag > env > file >
// default precedence.
func loadConfig(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.BindPFlag("output", fs.Lookup("output"))
	v.BindPFlag("include_dirs", fs.Lookup("include"))
	v.BindPFlag("defines", fs.Lookup("define"))
	v.BindPFlag("target", fs.Lookup("target"))
	v.BindPFlag("log_level", fs.Lookup("log-level"))

	v.SetEnvPrefix("CC64")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cc64")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
