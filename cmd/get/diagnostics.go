/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package get

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soclab/go-dram/pkg/command"
	"github.com/soclab/go-dram/pkg/config"
)

func NewDiagnosticsCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "List blobs the server could not decode",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			diags, err := apiClient.Diagnostics()
			if err != nil {
				return err
			}
			for _, diag := range diags {
				fmt.Print(diag.String())
			}
			return nil
		},
	}
	return cmd
}
