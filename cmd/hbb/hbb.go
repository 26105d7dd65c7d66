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

package hbb

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/dram"
)

const (
	FileOptionName = "file"
)

func NewCommand() *cobra.Command {
	var file string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "hbb",
		Short: "Print the highest DDR bank address bit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = cfg.SmemPath
			}
			result, err := dram.ParseFile(file)
			if err != nil {
				return err
			}
			fmt.Println(result.HighestBankBit)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, FileOptionName, "", fmt.Sprintf("Path of the shared memory snapshot. E.g. %s", config.DefaultSmemPath))

	return cmd
}
