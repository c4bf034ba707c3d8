package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var (
		apiBase string
		chAddr  string
		chUser  string
		chPass  string
		chDB    string
	)

	rootCmd := &cobra.Command{
		Use:          "query",
		Short:        "Query experiment results through the HTTP API or ClickHouse",
		SilenceUsage: true,
	}

	apiCmd := &cobra.Command{
		Use:   "api [KEY [summary|entropy]]",
		Short: "Query the ns-api server",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/experiments"
			switch len(args) {
			case 1:
				path += "/" + url.PathEscape(args[0]) + "/summary"
			case 2:
				path += "/" + url.PathEscape(args[0]) + "/" + args[1]
			}
			return queryViaAPI(apiBase + path)
		},
	}
	apiCmd.Flags().StringVar(&apiBase, "url", "http://localhost:8080", "Base URL of ns-api")

	directCmd := &cobra.Command{
		Use:   "direct [KEY]",
		Short: "Query the entropy_symbols table in ClickHouse",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			experiment := ""
			if len(args) == 1 {
				experiment = args[0]
			}
			return directQueryClickHouse(cmd.Context(), &clickhouse.Options{
				Addr: []string{chAddr},
				Auth: clickhouse.Auth{Database: chDB, Username: chUser, Password: chPass},
			}, experiment)
		},
	}
	directCmd.Flags().StringVar(&chAddr, "addr", "localhost:9000", "ClickHouse native address")
	directCmd.Flags().StringVar(&chDB, "database", "default", "ClickHouse database")
	directCmd.Flags().StringVar(&chUser, "user", "default", "ClickHouse user")
	directCmd.Flags().StringVar(&chPass, "password", "", "ClickHouse password")

	rootCmd.AddCommand(apiCmd, directCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("Query failed")
		os.Exit(1)
	}
}

func queryViaAPI(apiURL string) error {
	logrus.Infof("Sending request to %s", apiURL)
	resp, err := http.Get(apiURL)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, respBody)
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		logrus.Warn("Could not prettify JSON, printing raw response")
		fmt.Println(string(respBody))
		return nil
	}
	fmt.Println(prettyJSON.String())
	return nil
}

// directQueryClickHouse prints, for each experiment, the latest inserted
// summary: frame total and entropy.
func directQueryClickHouse(ctx context.Context, opts *clickhouse.Options, experiment string) error {
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return fmt.Errorf("error connecting to ClickHouse: %w", err)
	}
	defer conn.Close()

	query := `
		SELECT
			Experiment,
			sum(Count) AS Frames,
			-sum(Probability * log2(Probability)) AS Entropy,
			count() AS Symbols
		FROM entropy_symbols
		WHERE (Experiment, Timestamp) IN (SELECT Experiment, max(Timestamp) FROM entropy_symbols GROUP BY Experiment)
	`
	var args []interface{}
	if experiment != "" {
		query += " AND Experiment = ?"
		args = append(args, experiment)
	}
	query += " GROUP BY Experiment ORDER BY Experiment"

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		found = true
		var (
			name    string
			frames  uint64
			entropy float64
			symbols uint64
		)
		if err := rows.Scan(&name, &frames, &entropy, &symbols); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		fmt.Printf("%s\n  Frames: %d\n  Symbols: %d\n  Entropy: %.6f\n", name, frames, symbols, entropy)
	}
	if !found {
		logrus.Info("No data found for the specified criteria.")
	}
	return rows.Err()
}
