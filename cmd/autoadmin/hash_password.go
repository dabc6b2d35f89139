package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/artpar/autoadmin/adapters/hasher"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for auth.admins[].password_hash",
	Long: `Hash a password for the admin accounts in the config file.

The password is read from the argument, or prompted for when omitted.

Examples:
  autoadmin hash-password
  echo -n secret | autoadmin hash-password --stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

var (
	hashCost  int
	hashStdin bool
)

func init() {
	rootCmd.AddCommand(hashPasswordCmd)

	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 10, "bcrypt cost")
	hashPasswordCmd.Flags().BoolVar(&hashStdin, "stdin", false, "read the password from standard input")
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd, args)
	if err != nil {
		return err
	}

	hash, err := hasher.HashString(hasher.NewBcrypt(hashCost), password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	if hashStdin || !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}
