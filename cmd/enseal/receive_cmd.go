package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cvsouth/enseal/envelope"
	"github.com/cvsouth/enseal/identity"
	"github.com/cvsouth/enseal/keystore"
	"github.com/cvsouth/enseal/orchestrate"
	"github.com/cvsouth/enseal/signedenvelope"
	"github.com/cvsouth/enseal/transfer"
)

var (
	receiveMode   string
	receiveCode   string
	receiveOutput string
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive a .env file via rendezvous code, identity channel, or file drop",
	RunE: func(cmd *cobra.Command, args []string) error {
		var envBytes []byte
		var err error

		switch receiveMode {
		case "rendezvous":
			envBytes, err = receiveRendezvous(cmd)
		case "channel":
			envBytes, err = receiveChannel(cmd)
		case "filedrop":
			envBytes, err = receiveFileDrop(args)
		default:
			return fmt.Errorf("unknown --mode %q (want rendezvous, channel, or filedrop)", receiveMode)
		}
		if err != nil {
			return err
		}

		env, err := envelope.FromBytes(envBytes)
		if err != nil {
			return fmt.Errorf("parse envelope: %w", err)
		}
		maxAge := envelope.ShortCodeMaxAge
		if receiveMode == "filedrop" {
			maxAge = envelope.FileDropMaxAge
		}
		if err := env.CheckAge(maxAge); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		out := receiveOutput
		if out == "" {
			return printEnvelope(env)
		}
		return os.WriteFile(out, []byte(env.Payload), 0o644)
	},
}

func printEnvelope(env envelope.Envelope) error {
	fmt.Println(env.Payload)
	return nil
}

func receiveRendezvous(cmd *cobra.Command) ([]byte, error) {
	if receiveCode == "" {
		return nil, fmt.Errorf("--code is required for rendezvous mode")
	}
	r := transfer.Rendezvous{}
	return r.Receive(cmd.Context(), receiveCode)
}

func receiveChannel(cmd *cobra.Command) ([]byte, error) {
	s := store()
	own, err := identity.Load(s)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	wire, err := transfer.Listen(cmd.Context(), relayURL(), own.ChannelID(), nil)
	if err != nil {
		return nil, err
	}
	return openSigned(s, own, wire)
}

func receiveFileDrop(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("receive --mode filedrop requires a file path argument")
	}
	s := store()
	own, err := identity.Load(s)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	wire, err := transfer.Read(args[0])
	if err != nil {
		return nil, err
	}
	return openSigned(s, own, wire)
}

// openSigned unmarshals a SignedEnvelope, opens it with own's private key,
// and attempts to attribute the sender to a trusted name, warning to
// stderr rather than failing if no trusted bundle matches (spec.md §4.8:
// an unrecognised sender is still accepted).
func openSigned(s *keystore.Store, own *identity.Identity, wire []byte) ([]byte, error) {
	var se signedenvelope.SignedEnvelope
	if err := json.Unmarshal(wire, &se); err != nil {
		return nil, fmt.Errorf("parse signed envelope: %w", err)
	}

	plaintext, senderKey, err := signedenvelope.Open(&se, own.Enc, nil)
	if err != nil {
		return nil, fmt.Errorf("open signed envelope: %w", err)
	}

	name, _, ok, recErr := orchestrate.RecoverSender(s, senderKey)
	switch {
	case recErr != nil:
		fmt.Fprintf(os.Stderr, "warning: could not check sender against trusted keys: %v\n", recErr)
	case ok:
		fmt.Fprintf(os.Stderr, "from: %s\n", name)
	default:
		fmt.Fprintln(os.Stderr, orchestrate.UnknownSenderWarning(senderKey))
	}

	return plaintext, nil
}

func init() {
	receiveCmd.Flags().StringVar(&receiveMode, "mode", "rendezvous", "Transport: rendezvous, channel, or filedrop")
	receiveCmd.Flags().StringVar(&receiveCode, "code", "", "Rendezvous code (rendezvous mode)")
	receiveCmd.Flags().StringVar(&receiveOutput, "out", "", "Write the payload to this path instead of stdout")
	rootCmd.AddCommand(receiveCmd)
}
