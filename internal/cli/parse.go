/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"comicsnet/internal/credits"
)

type parseOutput struct {
	Characters []string `json:"characters"`
	credits.Result
}

func newParseCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <credit>...",
		Short: "Parse cover credit strings into characters",
		Long: `Parse one or more cover credit strings and print the characters they name,
team members first, one credit per line separated by ", ".

With --json the full parse is printed instead: teams, individuals,
ambiguous aliases and any dropped unclosed bracket text.`,
		Example: `  comicsnet parse "Justice League [Superman; Batman; Wonder Woman]; Lois Lane"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.parser()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetEscapeHTML(false)
			for _, s := range args {
				res := p.Parse(s)
				if !asJSON {
					fmt.Fprintln(out, strings.Join(res.List(), ", "))
					continue
				}
				if err := enc.Encode(parseOutput{Characters: res.List(), Result: res}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full parse as JSON")
	return cmd
}
