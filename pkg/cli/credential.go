package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/carsch18/opsflow/pkg/engine"
	opserrors "github.com/carsch18/opsflow/pkg/errors"
	"github.com/carsch18/opsflow/pkg/storage"
)

const maxCredentialSize = 1 << 20 // 1MB limit for all credential inputs

// isOnlyWhitespace checks if a byte slice contains only Unicode whitespace characters
// without allocating strings. Returns true if empty or whitespace-only.
func isOnlyWhitespace(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 is treated as non-whitespace
			return false
		}
		if !unicode.IsSpace(r) {
			return false
		}
		i += size
	}
	return true
}

// NewCredentialCommand creates the credential management command
func NewCredentialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage engine API tokens",
		Long: `Manage API tokens for remediation engines securely in the system keyring.
Tokens are stored in your system's native credential store (Keychain on macOS,
Credential Manager on Windows, Secret Service on Linux) and never in plain text files.`,
	}

	cmd.AddCommand(newCredentialSetCommand())
	cmd.AddCommand(newCredentialListCommand())
	cmd.AddCommand(newCredentialDeleteCommand())

	return cmd
}

// newCredentialSetCommand creates the credential set subcommand
func newCredentialSetCommand() *cobra.Command {
	var (
		value    string
		useStdin bool
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "set [engine-url]",
		Short: "Store an API token for an engine",
		Long: `Store the API token for a remediation engine. The token is stored securely
in your system keyring and sent as a bearer token on every engine request.

If no engine URL is given, the configured engine is used.

Examples:
  # Store a token with an interactive prompt (recommended for local use)
  opsflow credential set

  # Store a token for a specific engine from stdin (for automation/CI/CD)
  printf '%s' "$ENGINE_TOKEN" | opsflow credential set http://engine.internal:8080 --stdin

  # Store a token given on the command line (NOT recommended - visible in shell history)
  opsflow credential set --value secret123

Security:
  - Tokens are stored in your system keyring (never in plain text)
  - Use the interactive prompt for local use (avoids shell history)
  - Use --stdin for automation (avoids process list exposure, max 1MB)
  - Avoid the --value flag (visible in shell history and process list)
  - Token values are never displayed by opsflow commands

Note:
  - --stdin reads until EOF and preserves leading/trailing spaces
  - Only trailing CR/LF characters are removed; other whitespace is preserved
  - Use printf '%s' to avoid adding a trailing newline
  - Whitespace-only tokens are rejected (includes all Unicode whitespace)
  - Input buffers are zeroed after reading (best-effort; Go strings are immutable)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engineURL := GetEngineURL()
			if len(args) > 0 {
				engineURL = args[0]
			}

			tokens := storage.NewTokenStore()

			// Check if a token already exists
			_, err := tokens.Token(engineURL)
			if err == nil {
				// Token exists - confirm overwrite
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Warning: A token for '%s' already exists.\n", engineURL)
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "Overwrite? [y/N]: ")

				var response string
				_, _ = fmt.Fscanln(os.Stdin, &response)
				response = strings.ToLower(strings.TrimSpace(response))

				if response != "y" && response != "yes" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			// Get token value
			var tokenValue string
			if useStdin {
				// Read from stdin (for automation/CI/CD)
				// Limit stdin reading to prevent memory exhaustion
				limitedReader := io.LimitReader(cmd.InOrStdin(), maxCredentialSize+1)
				inputBytes, err := io.ReadAll(limitedReader)

				// Ensure buffer is zeroed on all exit paths
				defer func() {
					for i := range inputBytes {
						inputBytes[i] = 0
					}
				}()

				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}

				// Check if the token exceeded the size limit
				if len(inputBytes) > maxCredentialSize {
					return fmt.Errorf("token value exceeds maximum size of %d bytes", maxCredentialSize)
				}

				// Trim only trailing newline characters using bytes (preserve intentional spaces)
				trimmed := bytes.TrimRight(inputBytes, "\r\n")

				// Validate non-empty and not whitespace-only using Unicode-aware checks
				// This avoids creating temporary strings that can't be zeroed
				if len(trimmed) == 0 {
					return fmt.Errorf("token value cannot be empty")
				}
				if isOnlyWhitespace(trimmed) {
					return fmt.Errorf("token cannot contain only whitespace characters")
				}

				// Convert to string only at the last moment for keyring storage
				tokenValue = string(trimmed)
			} else if value != "" {
				// Value provided via flag (warn about security)
				_, _ = fmt.Fprintln(cmd.OutOrStderr(), "Warning: Using --value flag exposes the token in shell history.")
				_, _ = fmt.Fprintln(cmd.OutOrStderr(), "Consider using the interactive prompt (omit --value) or --stdin for better security.")

				// Validate size
				if len(value) > maxCredentialSize {
					return fmt.Errorf("token value exceeds maximum size of %d bytes", maxCredentialSize)
				}

				// Validate not whitespace-only
				if strings.TrimSpace(value) == "" {
					return fmt.Errorf("token cannot contain only whitespace characters")
				}

				tokenValue = value
			} else {
				// Prompt for value securely (no echo)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enter token for '%s': ", engineURL)

				// Read without echo
				tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
				_, _ = fmt.Fprintln(cmd.OutOrStdout()) // New line after hidden input

				// Zero token bytes on all exit paths
				defer func() {
					for i := range tokenBytes {
						tokenBytes[i] = 0
					}
				}()

				if err != nil {
					return fmt.Errorf("failed to read token value: %w", err)
				}

				// Validate size
				if len(tokenBytes) > maxCredentialSize {
					return fmt.Errorf("token value exceeds maximum size of %d bytes", maxCredentialSize)
				}

				tokenValue = string(tokenBytes)

				// Validate non-empty and not whitespace-only
				if tokenValue == "" {
					return fmt.Errorf("token value cannot be empty")
				}
				if strings.TrimSpace(tokenValue) == "" {
					return fmt.Errorf("token cannot contain only whitespace characters")
				}
			}

			// Verify the token against the engine before storing
			if !noVerify {
				client, err := engine.NewClient(engine.Config{
					BaseURL: engineURL,
					Token:   tokenValue,
					Timeout: 10 * time.Second,
				})
				if err != nil {
					return fmt.Errorf("failed to create engine client: %w", err)
				}

				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()

				if err := client.Ping(ctx); err != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStderr(), "Warning: engine is not reachable: %v\n", err)
					_, _ = fmt.Fprintln(cmd.OutOrStderr(), "Storing the token anyway. Use --no-verify to skip this check.")
				}
			}

			// Store the token in the keyring
			if err := tokens.SetToken(engineURL, tokenValue); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Token stored for engine '%s'\n", engineURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&value, "value", "v", "", "Token value (optional - will prompt securely if omitted)")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read token value from stdin (recommended for automation/CI/CD)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip the engine reachability check before storing")

	// Make --stdin and --value mutually exclusive
	cmd.MarkFlagsMutuallyExclusive("stdin", "value")

	return cmd
}

// newCredentialListCommand creates the credential list subcommand
func newCredentialListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List engines with stored tokens",
		Long: `List the engine endpoints that have a stored API token.
Shows only the engine URLs, never the token values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := storage.NewTokenStore()

			engines, err := tokens.Engines()
			if err != nil {
				return fmt.Errorf("failed to list credentials: %w", err)
			}

			if len(engines) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tokens stored.")
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nStore one with: opsflow credential set <engine-url>")
				return nil
			}

			sort.Strings(engines)

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Engines with stored tokens:")
			for _, engineURL := range engines {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  - %s (set)\n", engineURL)
			}

			return nil
		},
	}

	return cmd
}

// newCredentialDeleteCommand creates the credential delete subcommand
func newCredentialDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [engine-url]",
		Short: "Delete the stored token for an engine",
		Long: `Delete the stored API token for a remediation engine.

If no engine URL is given, the configured engine is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engineURL := GetEngineURL()
			if len(args) > 0 {
				engineURL = args[0]
			}

			tokens := storage.NewTokenStore()

			if err := tokens.DeleteToken(engineURL); err != nil {
				if errors.Is(err, opserrors.ErrNotFound) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No token stored for '%s'.\n", engineURL)
					return nil
				}
				return fmt.Errorf("failed to delete token: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Token deleted for engine '%s'\n", engineURL)
			return nil
		},
	}

	return cmd
}
