package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cvsouth/enseal/identity"
	"github.com/cvsouth/enseal/keystore"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage trusted peers' public-key bundles",
}

var trustImportCmd = &cobra.Command{
	Use:   "import <name> <bundle-file>",
	Short: "Import a peer's public key bundle under a name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := keystore.ValidateIdentityName(args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read bundle file: %w", err)
		}
		bundle, err := identity.ParseBundle(name.String(), data)
		if err != nil {
			return fmt.Errorf("parse bundle: %w", err)
		}

		s := store()
		if err := s.EnsureDirs(); err != nil {
			return err
		}
		out := identity.FormatBundle(name.String(), bundle.EncRecipient, bundle.SignPub)
		if err := os.WriteFile(s.TrustedPath(name), out, 0o644); err != nil {
			return fmt.Errorf("write trusted bundle: %w", err)
		}
		if err := s.RecordImport(name, time.Now(), bundle.Comment); err != nil {
			return fmt.Errorf("record import: %w", err)
		}

		fmt.Printf("Trusted %q (fingerprint %s)\n", name, bundle.Fingerprint())
		return nil
	},
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trusted peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		names, err := s.ListTrusted()
		if err != nil {
			return err
		}
		for _, name := range names {
			data, err := os.ReadFile(s.TrustedPath(name))
			if err != nil {
				continue
			}
			bundle, err := identity.ParseBundle(name.String(), data)
			if err != nil {
				fmt.Printf("%s\t(unparseable: %v)\n", name, err)
				continue
			}
			line := fmt.Sprintf("%s\t%s", name, bundle.Fingerprint())
			if imported, ok := s.ImportedAt(name); ok {
				line += "\timported " + imported.Format(time.RFC3339)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var trustRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a trusted peer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := keystore.ValidateIdentityName(args[0])
		if err != nil {
			return err
		}
		s := store()
		if err := os.Remove(s.TrustedPath(name)); err != nil {
			return fmt.Errorf("remove trusted bundle: %w", err)
		}
		_ = os.Remove(s.TrustedMetaPath(name))
		fmt.Printf("Removed %q from trusted peers\n", name)
		return nil
	},
}

func init() {
	trustCmd.AddCommand(trustImportCmd, trustListCmd, trustRemoveCmd)
	rootCmd.AddCommand(trustCmd)
}
