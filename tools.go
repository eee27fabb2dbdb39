package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-i2p/go-rns/lib/announce"
	"github.com/go-i2p/go-rns/lib/config"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/go-rns/lib/destination"
	"github.com/go-i2p/go-rns/lib/hdlc"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/keys"
	"github.com/go-i2p/go-rns/lib/netdb"
	"github.com/go-i2p/go-rns/lib/packet"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Show the transport identity, creating it when missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("new")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return showIdentity(cmd.OutOrStdout(), cfg, replace)
		},
	}
	cmd.Flags().Bool("new", false, "replace the stored identity with a new one (the old key is kept as <name>.old)")
	return cmd
}

func showIdentity(out io.Writer, cfg *config.ReticulumConfig, replace bool) error {
	dir, err := cfg.IdentityDir()
	if err != nil {
		return err
	}
	if err := config.CreateSecureDirectory(dir); err != nil {
		return err
	}
	if replace {
		path := filepath.Join(dir, cfg.Identity.Name)
		if err := os.Rename(path, path+".old"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return oops.Errorf("could not move old identity aside: %w", err)
		}
	}
	ks, err := keys.NewIdentityKeystore(dir, cfg.Identity.Name)
	if err != nil {
		return err
	}
	id := ks.Identity()
	fmt.Fprintf(out, "Identity   : %s\n", id)
	fmt.Fprintf(out, "Public key : %s\n", hex.EncodeToString(id.PublicKey()))
	fmt.Fprintf(out, "Key file   : %s\n", ks.Path())
	return nil
}

func newHashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <app.aspect...>",
		Short: "Print the destination hash of a dotted name",
		Long: `Print the destination hash of a dotted name. Without --identity the hash is
that of a PLAIN destination.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, _ := cmd.Flags().GetString("identity")
			return printHash(cmd.OutOrStdout(), args[0], pub)
		},
	}
	cmd.Flags().String("identity", "", "hex public key (64 bytes) of the destination's identity")
	return cmd
}

func printHash(out io.Writer, name, publicKeyHex string) error {
	var id *identity.Identity
	if publicKeyHex != "" {
		pub, err := hex.DecodeString(publicKeyHex)
		if err != nil {
			return oops.Errorf("identity is not hex: %w", err)
		}
		if id, err = identity.FromPublicKey(pub); err != nil {
			return err
		}
	}
	appName, aspects := destination.AppAndAspectsFromName(name)
	nameHash, err := destination.NameHash(appName, aspects...)
	if err != nil {
		return err
	}
	h := destination.HashFromNameHash(nameHash, id)

	fmt.Fprintf(out, "Destination : %s\n", crypto.PrettyHex(h[:]))
	fmt.Fprintf(out, "Name hash   : %s\n", hex.EncodeToString(nameHash))
	if id != nil {
		fmt.Fprintf(out, "Identity    : %s\n", id)
	}
	return nil
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode and validate a captured packet or HDLC frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decode(cmd.OutOrStdout(), args[0])
		},
	}
}

func decode(out io.Writer, input string) error {
	raw, err := hex.DecodeString(strings.Join(strings.Fields(input), ""))
	if err != nil {
		return oops.Errorf("input is not hex: %w", err)
	}
	if len(raw) > 0 && raw[0] == hdlc.Flag {
		if raw, err = hdlc.Decode(raw); err != nil {
			return err
		}
	}
	if packet.IsIFAC(raw) {
		fmt.Fprintln(out, "Packet      : interface access code set, not decoded")
		return nil
	}

	pkt, err := packet.Unpack(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Packet      : %s\n", pkt)
	fmt.Fprintf(out, "Packet hash : %s\n", hex.EncodeToString(pkt.Hash()))
	if pkt.PacketType != packet.Announce {
		return nil
	}

	a, err := announce.NewValidator(netdb.NewKnownDestinations()).Validate(pkt)
	if err != nil {
		fmt.Fprintf(out, "Announce    : invalid (%v)\n", err)
		return err
	}
	fmt.Fprintln(out, "Announce    : valid")
	fmt.Fprintf(out, "Identity    : %s\n", a.Identity)
	fmt.Fprintf(out, "Name hash   : %s\n", hex.EncodeToString(a.NameHash))
	fmt.Fprintf(out, "Emitted     : %s\n", announce.EmissionTime(a.RandomHash).Format("2006-01-02 15:04:05 MST"))
	if a.IsPathResponse() {
		fmt.Fprintln(out, "Path resp.  : yes")
	}
	if len(a.Ratchet) > 0 {
		fmt.Fprintf(out, "Ratchet     : %s\n", hex.EncodeToString(a.Ratchet))
	}
	fmt.Fprintf(out, "App data    : %q\n", a.AppData)
	return nil
}
