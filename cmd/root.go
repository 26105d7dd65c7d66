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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soclab/go-dram/cmd/completion"
	"github.com/soclab/go-dram/cmd/config"
	"github.com/soclab/go-dram/cmd/frequencies"
	"github.com/soclab/go-dram/cmd/get"
	"github.com/soclab/go-dram/cmd/hbb"
	"github.com/soclab/go-dram/cmd/info"
	"github.com/soclab/go-dram/cmd/pack"
	"github.com/soclab/go-dram/cmd/serve"
	"github.com/soclab/go-dram/cmd/smem"
	pkgconfig "github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "go-dram",
		Short: "Tool to inspect DDR details exposed through Qualcomm shared memory",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(info.NewCommand())
	cmd.AddCommand(frequencies.NewCommand())
	cmd.AddCommand(hbb.NewCommand())
	cmd.AddCommand(serve.NewCommand())
	cmd.AddCommand(get.NewCommand())
	cmd.AddCommand(smem.NewCommand())
	cmd.AddCommand(pack.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
