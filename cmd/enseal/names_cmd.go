package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvsouth/enseal/aliasbook"
	"github.com/cvsouth/enseal/keystore"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage short-name aliases for identities",
}

var aliasSetCmd = &cobra.Command{
	Use:   "set <short-name> <identity-name>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		aliases, err := aliasbook.LoadAliases(s)
		if err != nil {
			return err
		}
		target, err := keystore.ValidateIdentityName(args[1])
		if err != nil {
			return err
		}
		if err := aliases.Set(args[0], target); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", args[0], target)
		return nil
	},
}

var aliasRemoveCmd = &cobra.Command{
	Use:   "remove <short-name>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		aliases, err := aliasbook.LoadAliases(s)
		if err != nil {
			return err
		}
		return aliases.Remove(args[0])
	},
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		aliases, err := aliasbook.LoadAliases(s)
		if err != nil {
			return err
		}
		for _, name := range aliases.Names() {
			target, _ := aliases.Resolve(name)
			fmt.Printf("%s -> %s\n", name, target)
		}
		return nil
	},
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage named groups of identities",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <group-name> <identity-name>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		groups, err := aliasbook.LoadGroups(s)
		if err != nil {
			return err
		}
		member, err := keystore.ValidateIdentityName(args[1])
		if err != nil {
			return err
		}
		return groups.Add(args[0], member)
	},
}

var groupRemoveCmd = &cobra.Command{
	Use:   "remove <group-name> <identity-name>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		groups, err := aliasbook.LoadGroups(s)
		if err != nil {
			return err
		}
		member, err := keystore.ValidateIdentityName(args[1])
		if err != nil {
			return err
		}
		return groups.Remove(args[0], member)
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <group-name>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		groups, err := aliasbook.LoadGroups(s)
		if err != nil {
			return err
		}
		return groups.DeleteGroup(args[0])
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store()
		groups, err := aliasbook.LoadGroups(s)
		if err != nil {
			return err
		}
		for _, name := range groups.Names() {
			members, _ := groups.Members(name)
			fmt.Printf("%s: %v\n", name, members)
		}
		return nil
	},
}

func init() {
	aliasCmd.AddCommand(aliasSetCmd, aliasRemoveCmd, aliasListCmd)
	groupCmd.AddCommand(groupAddCmd, groupRemoveCmd, groupDeleteCmd, groupListCmd)
	rootCmd.AddCommand(aliasCmd, groupCmd)
}
