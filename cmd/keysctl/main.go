package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(out io.Writer, status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(out, string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(out, string(body))
	} else {
		fmt.Fprintf(out, "status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// newRootCmd arma el árbol de comandos. El client se termina de poblar en
// PersistentPreRunE, DESPUÉS de que cobra parseó los flags: poblarlo antes
// congelaría los defaults y los flags quedarían sin efecto.
func newRootCmd(cl *client) *cobra.Command {
	var (
		baseURL = envOr("KEYSMITH_ADMIN_URL", "http://localhost:8080")
		apiKey  = envOr("KEYSMITH_ADMIN_KEY", "")
		out     = envOr("KEYSMITH_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "keysctl",
		Short: "CLI admin para keysmith (vía /admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("falta API key (flag --admin-api-key o env KEYSMITH_ADMIN_KEY)")
			}
			cl.BaseURL = baseURL
			cl.APIKey = apiKey
			cl.OutFormat = out
			return nil
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "URL base del Admin API (env KEYSMITH_ADMIN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key del Admin API (env KEYSMITH_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Operaciones sobre el ring de claves de firma",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar claves (kid, alg, estado; nunca material)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/admin/keys", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("list fallo: status=%d body=%s", status, string(body))
			}
			cl.print(cmd.OutOrStdout(), status, body)
			return nil
		},
	}

	var introKID, introAlg, introMaterial, introMaterialFile string
	introduceCmd := &cobra.Command{
		Use:   "introduce",
		Short: "Introducir una clave nueva y promoverla (rotación manual)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if introKID == "" || introAlg == "" {
				return fmt.Errorf("se requieren --kid y --alg")
			}
			material := introMaterial
			if introMaterialFile != "" {
				b, err := os.ReadFile(introMaterialFile)
				if err != nil {
					return fmt.Errorf("leer material: %w", err)
				}
				material = string(b)
			}
			if material == "" {
				return fmt.Errorf("se requiere --material o --material-file")
			}

			payload, _ := json.Marshal(map[string]string{
				"kid":      introKID,
				"alg":      introAlg,
				"material": material,
			})
			status, body, err := cl.do("POST", "/admin/keys", payload)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("introduce fallo: status=%d body=%s", status, string(body))
			}
			cl.print(cmd.OutOrStdout(), status, body)
			return nil
		},
	}
	introduceCmd.Flags().StringVar(&introKID, "kid", "", "Key ID de la clave nueva")
	introduceCmd.Flags().StringVar(&introAlg, "alg", "RS256", "Algoritmo: HS256|RS256")
	introduceCmd.Flags().StringVar(&introMaterial, "material", "", "Material inline (secreto o PEM)")
	introduceCmd.Flags().StringVar(&introMaterialFile, "material-file", "", "Archivo con el material (gana sobre --material)")

	keysCmd.AddCommand(listCmd, introduceCmd)
	root.AddCommand(keysCmd)
	return root
}

func main() {
	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}
	if err := newRootCmd(cl).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
