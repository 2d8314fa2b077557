package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	xtwallet "github.com/signum-network/xt-wallet-go"
	"github.com/signum-network/xt-wallet-go/bridge"
	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/internal/address"
	"github.com/signum-network/xt-wallet-go/network"
	"github.com/signum-network/xt-wallet-go/store"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/signum-network/xt-wallet-go/vault"
	"github.com/signum-network/xt-wallet-go/vault/singlekey"
	filestore "github.com/signum-network/xt-wallet-go/vault/singlekey/store/file"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	DatadirEnvVar = "XT_WALLET_DATADIR"

	defaultListenAddr = "127.0.0.1:8765"
	defaultHealthAddr = "127.0.0.1:8766"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "xtd"
	app.Usage = "Signum wallet daemon serving dApp requests"
	app.Commands = append(
		app.Commands,
		&initCommand,
		&configCommand,
		&serveCommand,
		&accountCommand,
		&dumpCommand,
		&grantsCommand,
		&activityCommand,
		&networksCommand,
		&versionCommand,
	)
	app.Flags = []cli.Flag{datadirFlag, dbFlag, verboseFlag}
	app.Before = func(ctx *cli.Context) error {
		if ctx.Bool(verboseFlag.Name) {
			log.SetLevel(log.DebugLevel)
		}
		xtwallet.Version = Version
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var (
	datadirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Specify the data directory",
		Required: false,
		Value:    defaultDatadir(),
		EnvVars:  []string{DatadirEnvVar},
	}
	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "app data store type, one of kv or sql",
		Value: types.KVStore,
	}
	verboseFlag = &cli.BoolFlag{
		Name:        "verbose",
		Usage:       "enable debug logs",
		Value:       false,
		DefaultText: "false",
	}
	passwordFlag = &cli.StringFlag{
		Name:  "password",
		Usage: "password to unlock the wallet",
	}
	privateKeyFlag = &cli.StringFlag{
		Name:  "prvkey",
		Usage: "optional hex private key to encrypt",
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "id of the node to use by default",
		Value: network.Featured[0].ID,
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "address the dApp bridge listens on",
		Value: defaultListenAddr,
	}
	healthFlag = &cli.StringFlag{
		Name:  "health-listen",
		Usage: "address the grpc health service listens on",
		Value: defaultHealthAddr,
	}
	confirmTimeoutFlag = &cli.DurationFlag{
		Name:  "confirm-timeout",
		Usage: "time after which an unanswered confirmation is declined",
		Value: confirm.DefaultTimeout,
	}
	intercomOriginFlag = &cli.StringSliceFlag{
		Name:  "intercom-origin",
		Usage: "origin allowed to connect as confirmation ui",
	}
	originFlag = &cli.StringFlag{
		Name:     "origin",
		Usage:    "origin of the dApp",
		Required: true,
	}
	accountFlag = &cli.StringFlag{
		Name:  "account",
		Usage: "account id or address, defaults to the wallet account",
	}
)

var (
	initCommand = cli.Command{
		Name:  "init",
		Usage: "Initialize the wallet with encryption password and default node",
		Action: func(ctx *cli.Context) error {
			return initWallet(ctx)
		},
		Flags: []cli.Flag{
			passwordFlag, privateKeyFlag, networkFlag, listenFlag, healthFlag, confirmTimeoutFlag,
		},
	}
	configCommand = cli.Command{
		Name:  "config",
		Usage: "Shows wallet configuration",
		Action: func(ctx *cli.Context) error {
			return config(ctx)
		},
	}
	serveCommand = cli.Command{
		Name:  "serve",
		Usage: "Unlock the wallet and serve dApp requests",
		Action: func(ctx *cli.Context) error {
			return serve(ctx)
		},
		Flags: []cli.Flag{passwordFlag, intercomOriginFlag},
	}
	accountCommand = cli.Command{
		Name:  "account",
		Usage: "Shows the wallet account",
		Action: func(ctx *cli.Context) error {
			return account(ctx)
		},
	}
	dumpCommand = cli.Command{
		Name:  "dump-privkey",
		Usage: "Dumps private key of the wallet",
		Action: func(ctx *cli.Context) error {
			return dumpPrivKey(ctx)
		},
		Flags: []cli.Flag{passwordFlag},
	}
	grantsCommand = cli.Command{
		Name:  "grants",
		Usage: "Manage the permissions granted to dApps",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List granted dApps",
				Action: func(ctx *cli.Context) error {
					return listGrants(ctx)
				},
			},
			{
				Name:  "revoke",
				Usage: "Revoke the permission of a dApp",
				Action: func(ctx *cli.Context) error {
					return revokeGrant(ctx)
				},
				Flags: []cli.Flag{originFlag},
			},
		},
	}
	activityCommand = cli.Command{
		Name:  "activity",
		Usage: "Shows operations submitted on behalf of dApps",
		Action: func(ctx *cli.Context) error {
			return activity(ctx)
		},
		Flags: []cli.Flag{accountFlag},
	}
	networksCommand = cli.Command{
		Name:  "networks",
		Usage: "Shows the nodes dApps can use",
		Action: func(ctx *cli.Context) error {
			return networks(ctx)
		},
	}
	versionCommand = cli.Command{
		Name:  "version",
		Usage: "Shows the version of the daemon",
		Action: func(ctx *cli.Context) error {
			fmt.Println(Version)
			return nil
		},
	}
)

func initWallet(ctx *cli.Context) error {
	st, err := getStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	cfgData, err := st.ConfigStore().GetData(ctx.Context)
	if err != nil {
		return err
	}
	if cfgData != nil {
		return fmt.Errorf("wallet already initialized")
	}

	networkID := ctx.String(networkFlag.Name)
	registry := network.NewRegistry()
	if !registry.IsAllowed(network.Known(networkID)) {
		return fmt.Errorf("unknown network %s", networkID)
	}

	password, err := readPassword(ctx)
	if err != nil {
		return err
	}

	cfg := types.Config{
		ListenAddr:     ctx.String(listenFlag.Name),
		HealthAddr:     ctx.String(healthFlag.Name),
		NetworkID:      networkID,
		ConfirmTimeout: ctx.Duration(confirmTimeoutFlag.Name),
		VaultType:      vault.SingleKeyVault,
	}

	v, err := getVault(ctx, cfg)
	if err != nil {
		return err
	}
	if _, err := v.Create(ctx.Context, string(password), ctx.String(privateKeyFlag.Name)); err != nil {
		return err
	}
	if err := st.ConfigStore().AddData(ctx.Context, cfg); err != nil {
		return err
	}

	acc, err := v.GetAccount(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"account": acc.ID, "address": acc.Address})
}

func config(ctx *cli.Context) error {
	st, cfgData, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	cfg := map[string]any{
		"datadir":         st.ConfigStore().GetDatadir(),
		"listen_addr":     cfgData.ListenAddr,
		"health_addr":     cfgData.HealthAddr,
		"network_id":      cfgData.NetworkID,
		"confirm_timeout": cfgData.ConfirmTimeout.String(),
		"vault_type":      cfgData.VaultType,
		"custom_networks": cfgData.CustomNetworks,
	}
	return printJSON(cfg)
}

func serve(ctx *cli.Context) error {
	st, cfgData, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	v, err := getVault(ctx, *cfgData)
	if err != nil {
		st.Close()
		return err
	}
	password, err := readPassword(ctx)
	if err != nil {
		st.Close()
		return err
	}
	if _, err := v.Unlock(ctx.Context, string(password)); err != nil {
		st.Close()
		return err
	}

	svc, err := xtwallet.NewDAppService(st, v)
	if err != nil {
		st.Close()
		return err
	}
	defer svc.Close()

	server := bridge.NewServer(
		cfgData.ListenAddr, svc,
		bridge.WithIntercomOrigins(ctx.StringSlice(intercomOriginFlag.Name)...),
	)
	if err := server.Start(); err != nil {
		return err
	}

	healthSvc := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSvc)
	if cfgData.HealthAddr != "" {
		ln, err := net.Listen("tcp", cfgData.HealthAddr)
		if err != nil {
			// nolint
			server.Stop()
			return err
		}
		go func() {
			if err := grpcServer.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.WithError(err).Error("health server stopped")
			}
		}()
		log.Infof("health service listening on %s", cfgData.HealthAddr)
	}
	healthSvc.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down...")
	healthSvc.Shutdown()
	grpcServer.GracefulStop()
	if err := server.Stop(); err != nil {
		log.WithError(err).Warn("failed to stop bridge")
	}
	if err := v.Lock(context.Background()); err != nil {
		log.WithError(err).Warn("failed to lock vault")
	}
	return nil
}

func account(ctx *cli.Context) error {
	st, cfgData, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := getVault(ctx, *cfgData)
	if err != nil {
		return err
	}
	acc, err := v.GetAccount(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"account":    acc.ID,
		"address":    acc.Address,
		"public_key": acc.PublicKey,
	})
}

func dumpPrivKey(ctx *cli.Context) error {
	st, cfgData, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := getVault(ctx, *cfgData)
	if err != nil {
		return err
	}
	password, err := readPassword(ctx)
	if err != nil {
		return err
	}
	if _, err := v.Unlock(ctx.Context, string(password)); err != nil {
		return err
	}
	privateKey, err := v.Dump(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"private_key": privateKey})
}

func listGrants(ctx *cli.Context) error {
	st, _, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	grants, err := st.GrantStore().ListGrants(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(grants)
}

func revokeGrant(ctx *cli.Context) error {
	st, _, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	origin := ctx.String(originFlag.Name)
	grant, err := st.GrantStore().GetGrant(ctx.Context, origin)
	if err != nil {
		return err
	}
	if grant == nil {
		return fmt.Errorf("no permission granted to %s", origin)
	}
	if err := st.GrantStore().DeleteGrant(ctx.Context, origin); err != nil {
		return err
	}
	fmt.Printf("revoked permission of %s\n", origin)
	return nil
}

func activity(ctx *cli.Context) error {
	st, cfgData, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	accountID := ctx.String(accountFlag.Name)
	if accountID == "" {
		v, err := getVault(ctx, *cfgData)
		if err != nil {
			return err
		}
		acc, err := v.GetAccount(ctx.Context)
		if err != nil {
			return err
		}
		accountID = acc.ID
	} else {
		id, err := address.Parse(accountID)
		if err != nil {
			return err
		}
		accountID = fmt.Sprint(id)
	}

	records, err := st.ActivityStore().GetActivity(ctx.Context, accountID)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Println(r)
	}
	return nil
}

func networks(ctx *cli.Context) error {
	st, cfgData, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	registry := network.NewRegistry(cfgData.CustomNetworks...)
	return printJSON(map[string]any{
		"current":  registry.Current(cfgData.NetworkID),
		"featured": network.Featured,
		"custom":   cfgData.CustomNetworks,
	})
}

func getStore(ctx *cli.Context) (types.Store, error) {
	return store.NewStore(store.Config{
		ConfigStoreType:  types.FileStore,
		AppDataStoreType: ctx.String(dbFlag.Name),
		BaseDir:          ctx.String(datadirFlag.Name),
	})
}

func loadConfig(ctx *cli.Context) (types.Store, *types.Config, error) {
	st, err := getStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfgData, err := st.ConfigStore().GetData(ctx.Context)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if cfgData == nil {
		st.Close()
		return nil, nil, fmt.Errorf("wallet not initialized, run 'init' cmd to initialize")
	}
	return st, cfgData, nil
}

func getVault(ctx *cli.Context, cfg types.Config) (vault.Vault, error) {
	if cfg.VaultType != vault.SingleKeyVault {
		return nil, fmt.Errorf("unsupported vault type %s", cfg.VaultType)
	}
	vaultStore, err := filestore.NewStore(ctx.String(datadirFlag.Name))
	if err != nil {
		return nil, err
	}

	prefix := address.MainnetPrefix
	current := network.NewRegistry(cfg.CustomNetworks...).Current(cfg.NetworkID)
	if current.Type == network.Testnet {
		prefix = address.TestnetPrefix
	}
	return singlekey.NewVault(vaultStore, nil, prefix)
}

func readPassword(ctx *cli.Context) ([]byte, error) {
	password := []byte(ctx.String("password"))
	if len(password) == 0 {
		fmt.Print("unlock your wallet with password: ")
		var err error
		password, err = term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return nil, err
		}
	}
	return password, nil
}

func printJSON(resp any) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".xt-wallet"
	}
	return filepath.Join(home, ".xt-wallet")
}
