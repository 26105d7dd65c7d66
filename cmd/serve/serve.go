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

package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/srv"
)

const (
	IPOptionName       = "ip"
	PortOptionName     = "port"
	SmemPathOptionName = "smem-path"
	DBPathOptionName   = "db-path"
)

func NewCommand() *cobra.Command {
	var ip, smemPath, dbPath string
	var port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start DRAM server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip != "" {
				cfg.IP = ip
			}
			if port != 0 {
				cfg.ApiPort = port
			}
			if smemPath != "" {
				cfg.SmemPath = smemPath
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			server, err := srv.NewDramServer(context.Background(), cfg)
			if err != nil {
				return err
			}
			return server.Run()
		},
	}
	cmd.Flags().StringVar(&ip, IPOptionName, "", fmt.Sprintf("IP to bind. E.g. %s", config.DefaultIP))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port to bind. E.g. %d", config.DefaultApiPort))
	cmd.Flags().StringVar(&smemPath, SmemPathOptionName, "", fmt.Sprintf("Path of the shared memory snapshot. E.g. %s", config.DefaultSmemPath))
	cmd.Flags().StringVar(&dbPath, DBPathOptionName, "", "Path of the state database")

	return cmd
}
