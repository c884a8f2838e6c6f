package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ffbuild/internal/toolchain"
)

const ndkPlaceholder = "$ANDROID_NDK_HOME"

func newTargetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Show the configured ABIs and their resolved toolchains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets, err := cfg.BuildTargets()
			if err != nil {
				return err
			}
			hostTag, err := toolchain.CurrentHostTag(cfg.NDK.HostTag)
			if err != nil {
				return err
			}
			ndk := cfg.NDK.Home
			if ndk == "" {
				ndk = ndkPlaceholder
			}

			rows := make([][]string, 0, len(targets))
			for _, t := range targets {
				tc, err := toolchain.Resolve(ndk, hostTag, t)
				if err != nil {
					return err
				}
				extras := append(append([]string(nil), tc.ExtraCFlags...), tc.ExtraConfigureFlags...)
				for i, flag := range extras {
					extras[i] = strings.ReplaceAll(flag, filepath.ToSlash(tc.Dir), "$TOOLCHAIN")
				}
				rows = append(rows, []string{
					t.ABI.String(),
					strconv.Itoa(t.APILevel),
					tc.Arch,
					filepath.Base(tc.CC),
					filepath.Base(tc.CrossPrefix),
					strings.Join(extras, " "),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "NDK: %s\n", ndk)
			fmt.Fprintf(out, "Host tag: %s\n", hostTag)
			fmt.Fprintln(out, renderTable(
				[]string{"ABI", "API", "Arch", "Compiler", "Cross prefix", "Extra flags"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
