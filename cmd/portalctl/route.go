package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/portalAuth/role"
	"github.com/MrEthical07/portalAuth/route"
)

var (
	resolveFrom string
	guardRole   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve ROLE",
	Short: "Prints where a role lands after signing in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := route.NewResolver(cfg.Routes)
		fmt.Fprintln(cmd.OutOrStdout(), r.Resolve(role.Parse(args[0]), resolveFrom))
		return nil
	},
}

type decisionView struct {
	Guard    string `yaml:"guard"`
	Path     string `yaml:"path"`
	Decision string `yaml:"decision"`
	Redirect string `yaml:"redirect,omitempty"`
	ReturnTo string `yaml:"return_to,omitempty"`
}

var guardCmd = &cobra.Command{
	Use:   "guard NAME PATH",
	Short: "Decides whether the session, or --role, may open PATH behind guard NAME",
	Long: `Decides access for one of the portal guards. Without --role the stored
session is validated and used. Guards:

	` + strings.Join(guardNames(route.NewTable(route.DefaultHomes())), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := route.NewTable(cfg.Routes)
		g, ok := table.ByName(args[0])
		if !ok {
			return fmt.Errorf("unknown guard %q (known: %s)", args[0], strings.Join(guardNames(table), ", "))
		}

		var subject route.Subject
		if guardRole != "" {
			subject = route.Subject{Authenticated: true, HasUser: true, Role: role.Parse(guardRole)}
		} else {
			m, err := newManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			subject = m.Snapshot().Subject()
		}

		d := g.Decide(subject, args[1])
		return printYAML(cmd.OutOrStdout(), decisionView{
			Guard:    g.Name(),
			Path:     args[1],
			Decision: d.Kind.String(),
			Redirect: d.Path,
			ReturnTo: d.ReturnTo,
		})
	},
}

func guardNames(t route.Table) []string {
	all := t.All()
	names := make([]string, 0, len(all))
	for _, g := range all {
		names = append(names, g.Name())
	}
	sort.Strings(names)
	return names
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "location the user originally asked for")
	guardCmd.Flags().StringVar(&guardRole, "role", "", "decide for a signed-in user with this role instead of the stored session")

	rootCmd.AddCommand(resolveCmd, guardCmd)
}
