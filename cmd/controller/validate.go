package main

import (
	"fmt"
	"strings"

	"controller-go/internal/config"
	"controller-go/internal/platform"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file and print the effective configuration",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := platform.InterfaceConfigFor(cfg.Network); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out, err := yaml.Marshal(redacted(*cfg))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# config is valid (transport %s)\n", buildTransportName())
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func buildTransportName() string {
	if platform.BuildEthernetKind != "" {
		return string(platform.BuildTransport) + "/" + string(platform.BuildEthernetKind)
	}
	return string(platform.BuildTransport)
}

// redacted hides literal secrets; env: and file: references are kept since
// they name a location rather than the secret itself.
func redacted(cfg config.Config) config.Config {
	cfg.Network.Wifi.Password = redact(cfg.Network.Wifi.Password)
	tokens := make([]config.TokenConfig, len(cfg.Security.Tokens))
	for i, t := range cfg.Security.Tokens {
		t.Value = redact(t.Value)
		tokens[i] = t
	}
	cfg.Security.Tokens = tokens
	return cfg
}

func redact(v string) string {
	if v == "" || strings.HasPrefix(v, "env:") || strings.HasPrefix(v, "file:") ||
		strings.HasPrefix(v, "sha256:") || strings.HasPrefix(v, "bcrypt:") {
		return v
	}
	return "<redacted>"
}
