package cli

import (
	"github.com/spf13/cobra"

	"resumeseo/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	Long: `Start an HTTP server that exposes the resume analysis as a REST API.

Available endpoints:
- GET /: API banner
- GET /health: Health check with model configuration
- GET /stats: Server, model and rate limiting statistics
- POST /api/analyze: Analyze {"resume_text": "..."}
- POST /api/analyze/sample: Canned analysis of the sample resume

Paths may carry a deployment stage prefix such as /prod, which is stripped.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled or server
- Use --cert-file and --key-file for the server certificate`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("envelope", "", "Response shape: bare or wrapped (overrides config)")
	serveCmd.Flags().String("field-set", "", "Score breakdown fields: compact or full (overrides config)")

	bindFlags(serveCmd, map[string]string{
		"server.port":         "port",
		"server.host":         "host",
		"server.tls.mode":     "tls-mode",
		"server.tls.certFile": "cert-file",
		"server.tls.keyFile":  "key-file",
		"server.envelope":     "envelope",
		"analysis.fieldSet":   "field-set",
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	return server.NewServer(rt.cfg, rt.service, rt.obs, rt.logger).Start(cmd.Context())
}
