package profile

import (
	"fmt"
	"os"
	"unicode"

	"gopkg.in/yaml.v2"

	"github.com/fleetops/fleetops/pkg/hostset"
)

// Cluster describes a stateful cluster the maintenance gate can operate on.
type Cluster struct {
	Backend     string   `yaml:"backend"`
	Controllers []string `yaml:"controllers"`
}

type profile struct {
	Aliases  map[string][]string `yaml:"aliases"`
	Hosts    []string            `yaml:"hosts"`
	Clusters map[string]Cluster  `yaml:"clusters"`
	// the rest of the keys are option defaults
	Options map[string]any `yaml:",inline"`
}

type option struct {
	ptr          *string
	defaultValue string
}

var (
	pointersToProgramOptions = make(map[string]option)
	active                   = &profile{}
)

func fromCamelToKebabCase(s string) string {
	var result string
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result += "-"
		}
		result += string(unicode.ToLower(r))
	}
	return result
}

func FillDefaultsFromActiveProfile(profileFile, profileName string) error {
	if profileFile != "" && profileName == "" {
		return fmt.Errorf("specified --config-file, but unspecified --profile")
	}

	if profileFile == "" && profileName != "" {
		return fmt.Errorf("specified --profile, but unspecified --config-file")
	}

	if profileFile == "" && profileName == "" {
		return nil
	}

	data := make(map[string]*profile)
	fileContent, err := os.ReadFile(profileFile)
	if err != nil {
		return err
	}

	err = yaml.Unmarshal(fileContent, &data)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", profileFile, err)
	}

	loaded, ok := data[profileName]
	if !ok || loaded == nil {
		return fmt.Errorf("profile %s not found in your profile file", profileName)
	}

	for k, v := range loaded.Options {
		option, known := pointersToProgramOptions[fromCamelToKebabCase(k)]
		// options of other commands
		if !known {
			continue
		}
		if *option.ptr == option.defaultValue {
			*option.ptr = fmt.Sprint(v)
		}
	}

	active = loaded
	return nil
}

// Inventory returns the hosts and aliases of the active profile.
func Inventory() hostset.Inventory {
	return hostset.Inventory{
		Aliases: active.Aliases,
		Hosts:   active.Hosts,
	}
}

func LookupCluster(name string) (Cluster, error) {
	cluster, ok := active.Clusters[name]
	if !ok {
		return Cluster{}, fmt.Errorf("cluster %s is not defined in the active profile", name)
	}
	return cluster, nil
}

func PopulateFromProfileLaterP(
	setter func(*string, string, string, string, string),
	ptr *string,
	flagName string,
	shorthand string,
	defaultValue string,
	usage string,
) {
	pointersToProgramOptions[flagName] = option{
		ptr:          ptr,
		defaultValue: defaultValue,
	}
	setter(ptr, flagName, shorthand, defaultValue, usage)
}

func PopulateFromProfileLater(
	setter func(*string, string, string, string),
	ptr *string,
	flagName string,
	defaultValue string,
	usage string,
) {
	pointersToProgramOptions[flagName] = option{
		ptr:          ptr,
		defaultValue: defaultValue,
	}
	setter(ptr, flagName, defaultValue, usage)
}
