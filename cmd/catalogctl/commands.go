package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/core"
	"github.com/JonMunkholm/royalty/internal/entitlement"
	"github.com/JonMunkholm/royalty/internal/store"
	"github.com/JonMunkholm/royalty/internal/web/middleware"
)

// minSecretLen matches the JWT_SECRET check of the server configuration.
const minSecretLen = 32

// operator is the principal catalogctl acts as: a member of the tenant named
// by --tenant, with the same rights an API caller of that tenant has.
func operator(tenant string) entitlement.Principal {
	return entitlement.Principal{TenantID: tenant}
}

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog table and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			pool, err := store.OpenPool(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.NewPostgres(pool).EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			a.printf("schema ready\n")
			return nil
		},
	}
}

func (a *app) importCommand() *cobra.Command {
	var (
		kind, tenant, file string
		terms              map[string]string
		asJSON             bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a spreadsheet into one tenant",
		Example: `  catalogctl import --kind releases --tenant 7d0c... --file releases.csv
  catalogctl import --kind contracts --tenant 7d0c... --file contracts.csv \
      --terms sales=sales.csv --terms reserves=reserves.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := catalog.ParseKind(kind)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			req := core.ImportRequest{
				Kind:     k,
				Tenant:   tenant,
				FileName: filepath.Base(file),
				Data:     data,
			}
			for name, path := range terms {
				l, err := catalog.ParseTermList(name)
				if err != nil {
					return err
				}
				sheet, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				if req.Terms == nil {
					req.Terms = make(map[catalog.TermList][]byte)
				}
				req.Terms[l] = sheet
			}

			svc, closeStore, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			result, err := svc.Import(cmd.Context(), operator(tenant), req)
			if err != nil {
				return fmt.Errorf("%w (%s)", err, core.MapError(err).Code)
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			a.printf("%s: %d rows, %d imported, %d failed (%s)\n",
				result.FileName, result.TotalRows, len(result.Succeeded), len(result.FailedRows),
				result.Duration.Round(time.Millisecond))
			for _, f := range result.FailedRows {
				a.printf("  line %d [%s]: %s\n", f.LineNumber, f.Code, f.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "entity kind (campaign, contract, payee, release, track, work)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "client id the rows belong to")
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	cmd.Flags().StringToStringVar(&terms, "terms", nil, "contract term sheet as list=path (sales, returns, costs, mechanical, reserves)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var kind, tenant, terms, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one kind of one tenant as CSV",
		Example: `  catalogctl export --kind works --tenant 7d0c... --out works.csv
  catalogctl export --kind contracts --tenant 7d0c... --terms sales`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := catalog.ParseKind(kind)
			if err != nil {
				return err
			}
			if terms != "" && k != catalog.KindContract {
				return fmt.Errorf("--terms only applies to contracts, got %s", k)
			}

			svc, closeStore, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			var data []byte
			if terms != "" {
				data, err = svc.ExportTerms(cmd.Context(), operator(tenant), tenant, catalog.TermList(terms))
			} else {
				data, err = svc.Export(cmd.Context(), operator(tenant), k, tenant)
			}
			if err != nil {
				return err
			}
			return a.write(out, data)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "entity kind")
	cmd.Flags().StringVar(&tenant, "tenant", "", "client id to export")
	cmd.Flags().StringVar(&terms, "terms", "", "export this contract term list instead of the contracts")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) templateCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template <kind>",
		Short: "Write an empty sheet with the columns of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := catalog.ParseKind(args[0])
			if err != nil {
				return err
			}
			data, err := core.Template(k)
			if err != nil {
				return err
			}
			return a.write(out, data)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) tokenCommand() *cobra.Command {
	var (
		secret  string
		p       entitlement.Principal
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a principal",
		Example: `  catalogctl token --tenant 7d0c... --ttl 720h
  catalogctl token --tenant 7d0c... --payee 91aa... --contract c1 --contract c2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if len(secret) < minSecretLen {
				return fmt.Errorf("JWT secret must be at least %d bytes (use --secret or JWT_SECRET)", minSecretLen)
			}
			if !p.Internal && p.ParentID == "" && p.TenantID == "" {
				return errors.New("a token needs --internal, --parent or --tenant")
			}

			now := time.Now()
			claims := jwt.RegisteredClaims{
				Subject:  subject,
				IssuedAt: jwt.NewNumericDate(now),
			}
			if ttl > 0 {
				claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
			}

			tok, err := middleware.SignPrincipal(secret, p, claims)
			if err != nil {
				return err
			}
			a.printf("%s\n", tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret (default $JWT_SECRET)")
	cmd.Flags().BoolVar(&p.Internal, "internal", false, "staff principal with access to every tenant")
	cmd.Flags().StringVar(&p.ParentID, "parent", "", "parent id the principal administers")
	cmd.Flags().StringVar(&p.TenantID, "tenant", "", "client id the principal belongs to")
	cmd.Flags().StringVar(&p.PayeeID, "payee", "", "restrict the principal to this payee")
	cmd.Flags().StringSliceVar(&p.ContractIDs, "contract", nil, "contract ids the payee principal may see")
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, for audit logs")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}

// write sends data to path, or to the command output when path is empty.
func (a *app) write(path string, data []byte) error {
	if path == "" {
		_, err := a.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.printf("wrote %s (%d bytes)\n", path, len(data))
	return nil
}
