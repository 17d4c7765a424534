// Package credscmder provides the creds command for managing stored
// credential pools.
package credscmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/tokend/pkg/credentials"
)

const credsLongDesc string = `Manage credential pools for server keys.

Credentials are stored per key in <key>_credentials.toml in the .tokend/
directory and used to fetch tokens during cache refreshes. At runtime the
<KEY>_CREDENTIALS environment variable, when set, takes precedence over the
stored file.

Examples:
  tokend creds ALPHA --uid 1001       Prompt for the password and store it
  echo $PW | tokend creds ALPHA --uid 1001  Pipe the password from stdin
  tokend creds ALPHA --remove 1001    Remove one credential from the pool
  tokend creds --list                 List keys with stored credentials`

const credsShortDesc string = "Manage credential pools for server keys"

func NewCredsCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string
	var uidFlag string

	cmd := &cobra.Command{
		Use:   "creds [key]",
		Short: credsShortDesc,
		Long:  credsLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			switch {
			case listFlag:
				return runList(cmd, configDir)
			case len(args) == 0:
				return errors.New("key argument required")
			case removeFlag != "":
				return runRemove(cmd, args[0], removeFlag, configDir)
			case uidFlag != "":
				return runAdd(cmd, args[0], uidFlag, configDir)
			default:
				return errors.New("one of --uid or --remove is required")
			}
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List keys with stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the credential with this uid")
	cmd.Flags().StringVar(&uidFlag, "uid", "", "Store a credential with this uid")

	return cmd
}

func runAdd(cmd *cobra.Command, key, uid, configDir string) error {
	key = strings.ToUpper(strings.TrimSpace(key))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	password, err := readPassword(uid)
	if err != nil {
		return err
	}

	password = strings.TrimSpace(password)
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if err := mgr.Add(key, credentials.Credential{UID: uid, Password: password}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stored credential %s for %s\n", uid, key)

	return nil
}

func runList(cmd *cobra.Command, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	keys, err := mgr.Keys()
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored credentials.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'tokend creds <key> --uid <uid>' to store a credential.")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Stored credential pools:")
	for _, key := range keys {
		creds, err := mgr.Load(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d credentials)\n", key, len(creds))
	}

	return nil
}

func runRemove(cmd *cobra.Command, key, uid, configDir string) error {
	key = strings.ToUpper(strings.TrimSpace(key))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.Remove(key, uid); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed credential %s from %s.\n", uid, key)

	return nil
}

// readPassword reads a credential password from stdin. If stdin is a pipe,
// it reads the first line. Otherwise, it prompts interactively with hidden
// input.
func readPassword(uid string) (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Printf("Enter password for uid %s: ", uid)

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(passwordBytes), nil
}
