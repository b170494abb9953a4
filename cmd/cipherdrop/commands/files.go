package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/cipherdrop/internal/bytesize"
	"github.com/marmos91/cipherdrop/internal/cli/prompt"
	"github.com/marmos91/cipherdrop/pkg/config"
	"github.com/marmos91/cipherdrop/pkg/vault"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	filesOutput     string
	filesUnverified bool
	pruneForce      bool
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List transferred files",
	Long: `List the files received by this server, sorted by stored path.

A file is verified once its client has confirmed the checksum; unverified
rows are uploads that never completed the handshake.

Examples:
  # List all files
  cipherdrop files

  # Only files that never completed verification
  cipherdrop files --unverified

  # List as JSON
  cipherdrop files -o json`,
	RunE: runFiles,
}

var filesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove unverified files and their records",
	Long: `Remove every unverified file record together with its content in
the storage root. Verified files are never touched.

Examples:
  # Prompt before removing
  cipherdrop files prune

  # Skip the prompt (for scripts)
  cipherdrop files prune --force`,
	RunE: runFilesPrune,
}

func init() {
	filesCmd.Flags().StringVarP(&filesOutput, "output", "o", "table", "Output format (table|json|yaml)")
	filesCmd.Flags().BoolVar(&filesUnverified, "unverified", false, "Only show files that were never verified")
	filesPruneCmd.Flags().BoolVar(&pruneForce, "force", false, "Remove without confirmation")
	filesCmd.AddCommand(filesPruneCmd)
}

// fileView is the JSON/YAML projection of a transferred file. Size is the
// on-disk byte count, -1 when the content is missing under the storage root.
type fileView struct {
	ClientID string `json:"client_id" yaml:"client_id"`
	Name     string `json:"name" yaml:"name"`
	PathName string `json:"path_name" yaml:"path_name"`
	Size     int64  `json:"size" yaml:"size"`
	Verified bool   `json:"verified" yaml:"verified"`
}

// fileList renders files as a table.
type fileList []fileView

// Headers implements output.TableRenderer.
func (fl fileList) Headers() []string {
	return []string{"CLIENT ID", "NAME", "STORED PATH", "SIZE", "VERIFIED"}
}

// Rows implements output.TableRenderer.
func (fl fileList) Rows() [][]string {
	rows := make([][]string, 0, len(fl))
	for _, f := range fl {
		size := "-"
		if f.Size >= 0 {
			size = bytesize.ByteSize(f.Size).String()
		}
		rows = append(rows, []string{f.ClientID, f.Name, f.PathName, size, boolToYesNo(f.Verified)})
	}
	return rows
}

func runFiles(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	registry, closeStore, err := openRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	files, err := vault.New(vault.DefaultConfig(cfg.Storage.Root))
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}

	views := make(fileList, 0)
	for _, f := range registry.Files() {
		if filesUnverified && f.Verified {
			continue
		}
		size, err := files.Size(f.PathName)
		if err != nil {
			size = -1
		}
		views = append(views, fileView{
			ClientID: f.ClientID,
			Name:     f.Name,
			PathName: f.PathName,
			Size:     size,
			Verified: f.Verified,
		})
	}

	return printOutput(os.Stdout, filesOutput, views, len(views) == 0, "No files transferred.", views)
}

func runFilesPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// A prompt needs a terminal; piped invocations must opt in explicitly.
	if !pruneForce && !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal; use --force to prune without confirmation")
	}

	registry, closeStore, err := openRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	stats := registry.Stats()
	unverified := stats.Files - stats.VerifiedFiles
	if unverified == 0 {
		fmt.Println("No unverified files to prune.")
		return nil
	}

	confirmed, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Remove %d unverified file(s) and their records?", unverified), pruneForce)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	files, err := vault.New(vault.DefaultConfig(cfg.Storage.Root))
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}

	pruned, err := registry.PruneUnverified(cmd.Context())

	// Remove the content for every record that was pruned, even when the
	// prune stopped early on a store error.
	for _, f := range pruned {
		if removeErr := files.Remove(f.PathName); removeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not remove %s: %v\n", f.PathName, removeErr)
		}
	}
	if err != nil {
		return fmt.Errorf("prune aborted after removing %d file(s): %w", len(pruned), err)
	}

	fmt.Printf("Removed %d unverified file(s).\n", len(pruned))
	return nil
}
