package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-share/pkg/simpleshare"
	"github.com/tendant/simple-share/pkg/simpleshare/auth"
)

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shared items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			svc, err := cfg.BuildService()
			if err != nil {
				return err
			}

			items, err := svc.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list items: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tCONTENT\tDATE")
			for _, item := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.ID, item.Record.Kind, describe(item.Record), item.Record.Date)
			}
			return tw.Flush()
		},
	}
}

func describe(record *simpleshare.Record) string {
	if record.Kind == simpleshare.KindURL {
		return record.Target()
	}
	return record.Filename()
}

// NewHashPasswordCommand creates the hash-password command
func NewHashPasswordCommand() *cobra.Command {
	var legacy bool

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Hash a password for the users section of the config",
		Long: `Hash a password for the users section of the config. The password is
read from the first line of stdin when not given as an argument.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			if legacy {
				fmt.Fprintln(cmd.OutOrStdout(), auth.HashPasswordLegacy(password))
				return nil
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&legacy, "legacy", false, "emit the unsalted SHA-256 form understood by older deployments")

	return cmd
}
