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
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Query a running go-dram server",
	}
	cmd.AddCommand(NewInfoCommand())
	cmd.AddCommand(NewFrequenciesCommand())
	cmd.AddCommand(NewBankBitCommand())
	cmd.AddCommand(NewRefreshCommand())
	cmd.AddCommand(NewItemsCommand())
	cmd.AddCommand(NewDiagnosticsCommand())
	return cmd
}
