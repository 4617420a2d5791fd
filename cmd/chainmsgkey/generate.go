package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/chainmsg/crypto"
	"github.com/tos-network/chainmsg/keyfile"
)

const defaultKeyfileName = "keyfile.json"

var commandGenerate = &cli.Command{
	Name:      "generate",
	Usage:     "generate a new node signing keyfile",
	ArgsUsage: "[ <keyfile> ]",
	Description: `
Generate a new keyfile for a chainmsg node. The passphrase protecting it is
read twice from the terminal with echo disabled, unless --passwordfile is
given.`,
	Flags: []cli.Flag{passphraseFlag},
	Action: func(ctx *cli.Context) error {
		path := defaultKeyfileName
		if ctx.Args().Len() > 0 {
			path = ctx.Args().First()
		}

		passphrase, err := resolvePassphrase(ctx, true)
		if err != nil {
			return err
		}

		key, err := keyfile.Generate(path, passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Address: %s\n", crypto.AddressOf(key.PublicKeyBytes()))
		fmt.Printf("Keyfile written to %s\n", path)
		return nil
	},
}
