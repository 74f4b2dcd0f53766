package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	queryHost   string
	queryDataID string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Probe a deployed web service",
	Long:  `Fetches /test_data?data_id=N from a web service host and prints the response body.`,
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryHost, "host", "", "Public IP or hostname of the web service")
	queryCmd.MarkFlagRequired("host")
	queryCmd.Flags().StringVar(&queryDataID, "data-id", "1", "Value for the data_id query parameter")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	u := url.URL{Scheme: "http", Host: queryHost, Path: "/test_data"}
	q := u.Query()
	q.Set("data_id", queryDataID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("querying %s: %w", u.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}
