package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MikeRez0/orderpay/internal/adapter/auth"
	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/MikeRez0/orderpay/internal/core/signature"
	"github.com/spf13/cobra"
)

func signCmd() *cobra.Command {
	var secret, file string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the webhook signature of a payload",
		Long: `Computes the hex HMAC-SHA256 of a payload the way the gateway does, for
replaying a webhook by hand:

  paymentctl sign --file event.json | xargs -I{} curl -H 'Chapa-Signature: {}' ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("WEBHOOK_SECRET")
			}
			if secret == "" {
				return errors.New("no secret: pass --secret or set WEBHOOK_SECRET")
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			payload, err := io.ReadAll(in)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), signature.Sign(payload, []byte(secret)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Webhook secret (default $WEBHOOK_SECRET)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Payload file, - for stdin")

	return cmd
}

func tokenCmd() *cobra.Command {
	var customerID uint64
	var role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token (needs AUTH_SYMMETRIC_KEY)",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.NewEnvConfig()
			if err != nil {
				return err
			}
			if conf.Auth.SymmetricKey == "" {
				return errors.New("AUTH_SYMMETRIC_KEY is not set; a random key would not match the service")
			}
			if role != port.RoleCustomer && role != port.RoleAdmin {
				return fmt.Errorf("unknown role %q", role)
			}

			tokens, err := auth.New(conf.Auth)
			if err != nil {
				return err
			}
			token, err := tokens.CreateToken(&port.TokenPayload{CustomerID: customerID, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Uint64VarP(&customerID, "customer", "c", 0, "Customer id")
	cmd.Flags().StringVarP(&role, "role", "r", port.RoleCustomer, "customer or admin")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}
