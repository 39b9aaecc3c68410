/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"comicsnet/internal/config"
)

func newPasswordCmd(a *app) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Store the Postgres password in the OS keyring",
		Long: `Read the Postgres password for the configured backend user from stdin and
store it in the OS keyring. --clear removes the stored password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := a.cfg.Backend.User
			if user == "" {
				return errors.New("backend.user is not configured")
			}
			if remove {
				return config.SetBackendPassword(user, "")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", user)
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			pw := strings.TrimRight(line, "\r\n")
			if pw == "" {
				return errors.New("empty password; use --clear to remove it")
			}
			return config.SetBackendPassword(user, pw)
		},
	}
	cmd.Flags().BoolVar(&remove, "clear", false, "remove the stored password")
	return cmd
}
