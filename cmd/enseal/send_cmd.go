package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/age"
	"github.com/spf13/cobra"

	"github.com/cvsouth/enseal/aliasbook"
	"github.com/cvsouth/enseal/envelope"
	"github.com/cvsouth/enseal/identity"
	"github.com/cvsouth/enseal/orchestrate"
	"github.com/cvsouth/enseal/signedenvelope"
	"github.com/cvsouth/enseal/transfer"
)

var (
	sendTo      string
	sendMode    string
	sendLabel   string
	sendProject string
	sendDir     string
)

var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Send a .env file via rendezvous code, identity channel, or file drop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		label := sendLabel
		if label == "" {
			label = filepath.Base(args[0])
		}
		env := envelope.Seal(string(content), envelope.FormatEnv, label)
		if sendProject != "" {
			env = env.WithProject(sendProject)
		}
		envBytes, err := env.ToBytes()
		if err != nil {
			return fmt.Errorf("serialise envelope: %w", err)
		}

		switch sendMode {
		case "rendezvous":
			return sendRendezvous(cmd.Context(), envBytes)
		case "channel":
			return sendChannel(cmd.Context(), envBytes)
		case "filedrop":
			return sendFileDrop(envBytes)
		default:
			return fmt.Errorf("unknown --mode %q (want rendezvous, channel, or filedrop)", sendMode)
		}
	},
}

func sendRendezvous(ctx context.Context, envBytes []byte) error {
	r := transfer.Rendezvous{}
	return r.Send(ctx, envBytes, func(code string) {
		fmt.Printf("Share this code with the recipient: %s\n", code)
	})
}

func resolveSendRecipients() (own *identity.Identity, recipients []age.Recipient, bundles []*identity.PublicBundle, err error) {
	s := store()
	own, err = identity.Load(s)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load identity: %w", err)
	}
	if sendTo == "" {
		return nil, nil, nil, fmt.Errorf("--to is required for this transport")
	}
	aliases, err := aliasbook.LoadAliases(s)
	if err != nil {
		return nil, nil, nil, err
	}
	groups, err := aliasbook.LoadGroups(s)
	if err != nil {
		return nil, nil, nil, err
	}
	bundles, err = orchestrate.ResolveRecipients(s, aliases, groups, sendTo)
	if err != nil {
		return nil, nil, nil, err
	}
	recipients = append(recipients, own.EncRecipient())
	for _, b := range bundles {
		recipients = append(recipients, b.EncRecipient)
	}
	return own, recipients, bundles, nil
}

func sendChannel(ctx context.Context, envBytes []byte) error {
	own, recipients, bundles, err := resolveSendRecipients()
	if err != nil {
		return err
	}

	se, err := signedenvelope.Seal(envBytes, recipients, own)
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	wire, err := json.Marshal(se)
	if err != nil {
		return fmt.Errorf("serialise signed envelope: %w", err)
	}

	for _, b := range bundles {
		channelID := b.ChannelID()
		fmt.Printf("Pushing to %s (channel %s)...\n", sendTo, channelID)
		if err := transfer.Push(ctx, relayURL(), channelID, wire, nil); err != nil {
			return fmt.Errorf("push to %s: %w", sendTo, err)
		}
	}
	fmt.Println("Delivered.")
	return nil
}

func sendFileDrop(envBytes []byte) error {
	own, recipients, _, err := resolveSendRecipients()
	if err != nil {
		return err
	}
	se, err := signedenvelope.Seal(envBytes, recipients, own)
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	wire, err := json.Marshal(se)
	if err != nil {
		return fmt.Errorf("serialise signed envelope: %w", err)
	}

	dir := sendDir
	if dir == "" {
		dir = "."
	}
	path, err := transfer.Write(dir, sendTo, wire)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "Recipient alias, group, or identity name (required for channel/filedrop)")
	sendCmd.Flags().StringVar(&sendMode, "mode", "rendezvous", "Transport: rendezvous, channel, or filedrop")
	sendCmd.Flags().StringVar(&sendLabel, "label", "", "Envelope label (default: input filename)")
	sendCmd.Flags().StringVar(&sendProject, "project", "", "Envelope project tag")
	sendCmd.Flags().StringVar(&sendDir, "dir", "", "Destination directory for filedrop mode")
	rootCmd.AddCommand(sendCmd)
}
