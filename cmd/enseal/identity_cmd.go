package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/cvsouth/enseal/identity"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a new identity (encryption and signing keypairs)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		if s.IsInitialised() {
			return fmt.Errorf("identity already exists under %s (nothing to do)", s.Base)
		}

		id, err := identity.Generate()
		if err != nil {
			return fmt.Errorf("generate identity: %w", err)
		}
		if err := id.Save(s); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}

		name := initName
		if name == "" {
			name = defaultIdentityName()
		}
		fmt.Printf("Generated identity %q\n", name)
		fmt.Printf("Fingerprint: %s\n", id.Fingerprint())
		fmt.Printf("Channel ID:  %s\n", id.ChannelID())
		fmt.Println()
		fmt.Println("Share your public key bundle with peers via `enseal export`.")
		return nil
	},
}

// defaultIdentityName follows spec.md's supplemented default of
// "<os-user>@<hostname>" when the caller doesn't supply one explicitly.
func defaultIdentityName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return host
	}
	return u.Username + "@" + host
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print this machine's public key bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		id, err := identity.Load(s)
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}
		name := initName
		if name == "" {
			name = defaultIdentityName()
		}
		os.Stdout.Write(identity.FormatBundle(name, id.EncRecipient(), id.SignPub))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Identity name shown in the init output; not stored (default: <user>@<hostname>)")
	exportCmd.Flags().StringVar(&initName, "name", "", "Identity name embedded in the exported bundle (default: <user>@<hostname>)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(exportCmd)
}
