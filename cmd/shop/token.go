package main

import (
	"fmt"
	"strings"

	"ecshop/internal/auth"
	"ecshop/internal/config"
	"ecshop/internal/domain/model"

	"github.com/spf13/cobra"
)

// 管理者の初期トークンなどを手で発行する
func tokenCmd() *cobra.Command {
	var (
		sub  int64
		role string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sub <= 0 {
				return fmt.Errorf("--sub must be a positive user id")
			}
			r := model.Role(strings.ToUpper(role))
			if !r.Valid() {
				return fmt.Errorf("--role must be USER or ADMIN")
			}

			cfg, err := config.LoadToken()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			jwtm := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, auth.SystemClock{})
			token, _, err := jwtm.Issue(sub, r)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().Int64Var(&sub, "sub", 0, "user id to put in the sub claim")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "USER or ADMIN")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
