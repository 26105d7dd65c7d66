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

package info

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/dram"
)

const (
	FileOptionName = "file"
	RawOptionName  = "raw"
)

func NewCommand() *cobra.Command {
	var file string
	var raw bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Decode and print DDR details from a shared memory snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = cfg.SmemPath
			}
			var result *dram.Result
			var err error
			if raw {
				blob, readErr := ioutil.ReadFile(file)
				if readErr != nil {
					return readErr
				}
				result, err = dram.Parse(blob)
			} else {
				result, err = dram.ParseFile(file)
			}
			if err != nil {
				return err
			}
			fmt.Print(result.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, FileOptionName, "", fmt.Sprintf("Path of the shared memory snapshot. E.g. %s", config.DefaultSmemPath))
	cmd.Flags().BoolVar(&raw, RawOptionName, false, "Treat the file as a bare DDR info blob instead of a snapshot")

	return cmd
}
