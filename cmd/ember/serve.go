package main

import (
	"net"

	"github.com/chazu/ember/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		grpcAddr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compile and run over Connect and gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.manifest.Server.Address
			}
			c, err := a.openCache(false)
			if err != nil {
				return err
			}
			defer c.Close()

			srv := server.New(
				server.WithCache(c),
				server.WithCompileOptions(a.compileOptions()),
				server.WithMaxFrames(a.manifest.VM.MaxFrames),
			)
			defer srv.Stop()

			if grpcAddr != "" {
				lis, err := net.Listen("tcp", grpcAddr)
				if err != nil {
					return err
				}
				go func() {
					if err := srv.ServeGRPC(lis); err != nil {
						fatal(err)
					}
				}()
			}
			return srv.ListenAndServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Connect address (default: server.address from ember.toml)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "also serve gRPC on this address")
	return cmd
}
