package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/chainmsg/crypto"
	"github.com/tos-network/chainmsg/keyfile"
)

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "decrypt a keyfile and print its address",
	ArgsUsage: "<keyfile>",
	Flags:     []cli.Flag{passphraseFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.Args().Len() != 1 {
			return cli.Exit("need exactly one keyfile argument", 1)
		}
		path := ctx.Args().First()

		passphrase, err := resolvePassphrase(ctx, false)
		if err != nil {
			return err
		}

		key, err := keyfile.Load(path, passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Address:    %s\n", crypto.AddressOf(key.PublicKeyBytes()))
		fmt.Printf("Public key: %x\n", key.PublicKeyBytes())
		return nil
	},
}
