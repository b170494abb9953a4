package commands

import (
	"os"

	"github.com/marmos91/cipherdrop/internal/cli/timeutil"
	"github.com/marmos91/cipherdrop/pkg/config"
	"github.com/spf13/cobra"
)

var clientsOutput string

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List registered clients",
	Long: `List the clients registered with this server, sorted by name.

Key material never leaves the server; the table only reports whether a
public key and a session key are present.

Examples:
  # List clients as table
  cipherdrop clients

  # List as JSON
  cipherdrop clients -o json`,
	RunE: runClients,
}

func init() {
	clientsCmd.Flags().StringVarP(&clientsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// clientView is the JSON/YAML projection of a client. Key material never
// leaves the server, so only the presence booleans appear.
type clientView struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	LastSeen      string `json:"last_seen" yaml:"last_seen"`
	HasPublicKey  bool   `json:"has_public_key" yaml:"has_public_key"`
	HasSessionKey bool   `json:"has_session_key" yaml:"has_session_key"`
}

// clientList renders clients as a table.
type clientList []clientView

// Headers implements output.TableRenderer.
func (cl clientList) Headers() []string {
	return []string{"ID", "NAME", "LAST SEEN", "AGE", "PUBLIC KEY", "SESSION KEY"}
}

// Rows implements output.TableRenderer.
func (cl clientList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		rows = append(rows, []string{
			c.ID,
			c.Name,
			c.LastSeen,
			timeutil.FormatLastSeen(c.LastSeen),
			boolToYesNo(c.HasPublicKey),
			boolToYesNo(c.HasSessionKey),
		})
	}
	return rows
}

func runClients(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	registry, closeStore, err := openRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	views := make(clientList, 0)
	for _, c := range registry.Clients() {
		views = append(views, clientView{
			ID:            c.ID,
			Name:          c.Name,
			LastSeen:      c.LastSeen,
			HasPublicKey:  c.HasPublicKey(),
			HasSessionKey: c.HasSessionKey(),
		})
	}

	return printOutput(os.Stdout, clientsOutput, views, len(views) == 0, "No clients registered.", views)
}
