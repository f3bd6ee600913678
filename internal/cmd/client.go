package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rrrhhh38/phytiumpi-project/internal/client"
)

func newClient() (*client.Client, error) {
	c, err := client.New(serverURL)
	if err != nil {
		return nil, exitError(ExitInvalidArgument, "Invalid --server", err)
	}
	return c, nil
}

// clientError maps a client failure to an exit code. Service-reported
// errors exit 1; transport failures mean the service is unreachable.
func clientError(message string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) || errors.Is(err, client.ErrSuperseded) {
		return exitError(ExitFailure, message, err)
	}
	return exitError(ExitUnavailable, fmt.Sprintf("%s (is the service running at %s?)", message, serverURL), err)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
