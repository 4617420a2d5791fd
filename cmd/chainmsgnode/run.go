package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/tos-network/chainmsg/config"
	"github.com/tos-network/chainmsg/crypto"
	"github.com/tos-network/chainmsg/keyfile"
	"github.com/tos-network/chainmsg/log"
	"github.com/tos-network/chainmsg/node"
)

var logger = log.New("chainmsgnode")

func runNode(ctx *cli.Context) error {
	cfg := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("loading config: %v", err), 1)
		}
		cfg = loaded
	}
	cfg = applyFlagOverrides(ctx, cfg)

	passphrase, err := resolveNodePassphrase(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	key, err := loadOrGenerateKey(cfg.KeyFile, passphrase)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	n, err := node.New(nodeConfigFrom(cfg), key)
	if err != nil {
		return cli.Exit(fmt.Sprintf("initializing node: %v", err), 1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Start(runCtx); err != nil {
		return cli.Exit(fmt.Sprintf("starting node: %v", err), 1)
	}
	defer n.Exit()

	logger.Info("node started", "address", n.Address(), "listen", n.ListenAddr())
	fmt.Printf("address: %s\n", n.Address())

	return runCommandLoop(runCtx, n)
}

func nodeConfigFrom(cfg config.Config) node.Config {
	return node.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		MaxConnections:    cfg.MaxConnections,
		BroadcastPort:     cfg.BroadcastPort,
		BroadcastInterval: cfg.BroadcastInterval.Duration,
		DirectoryAddress:  cfg.DirectoryAddress,
		SyncInterval:      cfg.SyncInterval.Duration,
		SyncTimeout:       cfg.SyncTimeout.Duration,
		Difficulty:        cfg.Difficulty,
	}
}

func resolveNodePassphrase(ctx *cli.Context) (string, error) {
	if path := ctx.String(keyfilePasswordFileFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return promptPassphrase("Passphrase: ")
}

// promptPassphrase reads a passphrase from the terminal with echo disabled.
func promptPassphrase(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal; use --keyfile-passwordfile")
	}
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return string(data), err
}

func loadOrGenerateKey(path, passphrase string) (*crypto.PrivateKey, error) {
	key, err := keyfile.Load(path, passphrase)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading keyfile %s: %w", path, err)
	}
	key, err = keyfile.Generate(path, passphrase)
	if err != nil {
		return nil, fmt.Errorf("generating keyfile %s: %w", path, err)
	}
	return key, nil
}

// runCommandLoop reads newline-delimited commands from stdin and drives the
// node's façade methods: a minimal line protocol rather than a real REPL,
// good enough to script or drive by hand, exiting cleanly on "exit" or
// when ctx is cancelled.
func runCommandLoop(ctx context.Context, n *node.Node) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if dispatchCommand(ctx, n, line) {
				return nil
			}
		}
	}
}

// dispatchCommand runs one command line and returns true if the loop
// should stop (the "exit" command).
func dispatchCommand(ctx context.Context, n *node.Node, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit":
		return true

	case "connect":
		if len(args) != 2 {
			fmt.Println("usage: connect <host> <port>")
			return false
		}
		port, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println("bad port:", err)
			return false
		}
		if err := n.Connect(args[0], port); err != nil {
			fmt.Println("connect failed:", err)
		}

	case "message":
		if len(args) < 3 {
			fmt.Println("usage: message <host> <port> <text...>")
			return false
		}
		port, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println("bad port:", err)
			return false
		}
		content := strings.Join(args[2:], " ")
		if err := n.Message(args[0], port, []byte(content)); err != nil {
			fmt.Println("message failed:", err)
		}

	case "send":
		if len(args) != 2 {
			fmt.Println("usage: send <address> <amount>")
			return false
		}
		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Println("bad amount:", err)
			return false
		}
		if err := n.Send(args[0], amount); err != nil {
			fmt.Println("send failed:", err)
		}

	case "mine":
		block, err := n.Mine(ctx)
		if err != nil {
			fmt.Println("mine failed:", err)
			return false
		}
		fmt.Printf("mined block %s (height %d)\n", block.Hash, block.Index)

	case "balance":
		if len(args) != 1 {
			fmt.Println("usage: balance <address>")
			return false
		}
		fmt.Println(n.Balance(args[0]))

	case "peers":
		for _, p := range n.Peers() {
			fmt.Println(p)
		}

	case "chain":
		for _, b := range n.ShowChain() {
			fmt.Printf("%d %s\n", b.Index, b.Hash)
		}

	default:
		fmt.Println("unknown command:", cmd)
	}
	return false
}
