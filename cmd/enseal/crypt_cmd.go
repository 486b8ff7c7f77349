package main

import (
	"fmt"
	"os"

	"filippo.io/age"
	"github.com/spf13/cobra"

	"github.com/cvsouth/enseal/aliasbook"
	"github.com/cvsouth/enseal/atrest"
	"github.com/cvsouth/enseal/identity"
	"github.com/cvsouth/enseal/orchestrate"
)

var (
	encryptTo         []string
	encryptPerVar     bool
	encryptOutputPath string
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <file>",
	Short: "Encrypt a .env file at rest for one or more recipients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		own, err := identity.Load(s)
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}

		recipients := []age.Recipient{own.EncRecipient()}
		if len(encryptTo) > 0 {
			aliases, err := aliasbook.LoadAliases(s)
			if err != nil {
				return err
			}
			groups, err := aliasbook.LoadGroups(s)
			if err != nil {
				return err
			}
			for _, ref := range encryptTo {
				bundles, err := orchestrate.ResolveRecipients(s, aliases, groups, ref)
				if err != nil {
					return err
				}
				for _, b := range bundles {
					recipients = append(recipients, b.EncRecipient)
				}
			}
		}

		plaintext, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		outPath := encryptOutputPath
		if outPath == "" {
			outPath = args[0]
		}

		if encryptPerVar {
			encrypted, err := atrest.EncryptPerVariable(string(plaintext), recipients)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			return writeOutput(outPath, []byte(encrypted), 0o600)
		}

		ciphertext, err := atrest.EncryptWholeFile(plaintext, recipients)
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		return writeOutput(outPath, ciphertext, 0o600)
	},
}

var decryptOutputPath string

var decryptCmd = &cobra.Command{
	Use:   "decrypt <file>",
	Short: "Decrypt a .env file that was encrypted at rest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		own, err := identity.Load(s)
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		outPath := decryptOutputPath
		if outPath == "" {
			outPath = args[0]
		}

		if atrest.IsAgeEncrypted(data) {
			plaintext, err := atrest.DecryptWholeFile(data, own.Enc)
			if err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}
			return writeOutput(outPath, plaintext, 0o644)
		}
		if atrest.IsPerVarEncrypted(string(data)) {
			plaintext, err := atrest.DecryptPerVariable(string(data), own.Enc)
			if err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}
			return writeOutput(outPath, []byte(plaintext), 0o644)
		}
		return fmt.Errorf("%s does not look age-encrypted or ENC[age:...]-wrapped", args[0])
	},
}

func writeOutput(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func init() {
	encryptCmd.Flags().StringSliceVar(&encryptTo, "to", nil, "Recipient alias, group, or identity name (repeatable)")
	encryptCmd.Flags().BoolVar(&encryptPerVar, "per-variable", false, "Encrypt each value individually instead of the whole file")
	encryptCmd.Flags().StringVar(&encryptOutputPath, "out", "", "Output path (default: overwrite input)")
	decryptCmd.Flags().StringVar(&decryptOutputPath, "out", "", "Output path (default: overwrite input)")
	rootCmd.AddCommand(encryptCmd, decryptCmd)
}
