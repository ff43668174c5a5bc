// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/tlsign/internal/signer"
)

var (
	verifyFile      string
	verifyPublicKey string
	verifySignature string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a Tl-Signature against a request document",
	Long: `Verify a Tl-Signature against a request document using an EC P-521 public key.

Only method, path, headers and body are read from the document; key fields are
ignored.

Example:
  tlsign verify --public-key ec512-pub.pem --signature "$TL_SIGNATURE" --file request.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifySignature == "" {
			return fmt.Errorf("--signature is required")
		}
		pemData, err := os.ReadFile(verifyPublicKey)
		if err != nil {
			return fmt.Errorf("failed to read public key: %w", err)
		}
		req, err := readSigningRequest(cmd.InOrStdin(), verifyFile)
		if err != nil {
			return err
		}

		if err := signer.Verify(pemData, verifySignature, req.Normalize()); err != nil {
			color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "Signature invalid")
			return err
		}

		kid, _ := signer.ExtractKID(verifySignature)
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Signature valid (kid: %s)\n", kid)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "-", "Request document the signature covers (- for stdin)")
	verifyCmd.Flags().StringVar(&verifyPublicKey, "public-key", "", "PEM file with the EC P-521 public key")
	verifyCmd.Flags().StringVar(&verifySignature, "signature", "", "Tl-Signature header value")
	_ = verifyCmd.MarkFlagRequired("public-key")

	rootCmd.AddCommand(verifyCmd)
}
