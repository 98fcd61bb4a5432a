package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jean-voila/nexium/internal/identity"
	"github.com/jean-voila/nexium/internal/keys"
	"github.com/jean-voila/nexium/pkg/config"
)

func newPublishKeyCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "publish-key",
		Short: "Generate an RSA-2048 keypair and publish the public half to the identity provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishKey(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "path to config.json")
	return cmd
}

func publishKey(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	kp, err := keys.Generate(cfg.UserID)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}
	armored, err := keys.ArmorPublicKey(kp.Entity)
	if err != nil {
		return fmt.Errorf("armor public key: %w", err)
	}
	client := identity.NewClient(cfg.GitlabAPIURL, cfg.GitlabToken, identity.TokenClassic)
	if err := client.PublishKey(armored); err != nil {
		return fmt.Errorf("publish key: %w", err)
	}
	fmt.Println("published public key for", cfg.UserID)
	return nil
}
