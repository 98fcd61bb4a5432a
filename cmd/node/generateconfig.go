package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jean-voila/nexium/core"
)

func newGenerateConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config [path]",
		Short: "Interactively generate a config.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.json"
			if len(args) == 1 {
				path = args[0]
			}
			return generateConfig(path)
		},
	}
}

func generateConfig(path string) error {
	reader := bufio.NewReader(os.Stdin)
	ask := func(prompt, fallback string) string {
		fmt.Printf("%s [%s]: ", prompt, fallback)
		line, _ := reader.ReadString('\n')
		line = trimNewline(line)
		if line == "" {
			return fallback
		}
		return line
	}

	database := ask("Chain store path", core.BlockchainFile)
	key := ask("Key file path", "node.key")
	portStr := ask("Listen port", strconv.Itoa(core.DefaultPort))
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("bad port %q: %w", portStr, err)
	}
	userID := ask("Identity-provider user id", "")
	gitlabToken := ask("Identity-provider token", "")
	gitlabAPIURL := ask("Identity-provider API URL", "https://gitlab.com")
	address := ask("This node's advertised address", "127.0.0.1")

	doc := map[string]any{
		"database":       database,
		"key":            key,
		"port":           port,
		"user_id":        userID,
		"gitlab_token":   gitlabToken,
		"gitlab_api_url": gitlabAPIURL,
		"network": map[string]any{
			"address":         address,
			"bootstrap_peers": []string{},
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
