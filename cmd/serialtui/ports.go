package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"serialtui/pkg/config"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List the configured ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := config.Load(flagConfig)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Path", "Baud", "Frame", "Ending", "Color"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for _, p := range cfg.Ports {
			frame := fmt.Sprintf("%d%s%d", p.DataBits, parityLetter(p.Parity), p.StopBits)
			table.Append([]string{p.Name, p.Path, fmt.Sprint(p.BaudRate), frame, p.LineEnding, p.Color})
		}
		table.Render()
		fmt.Printf("\nconfig: %s\n", path)
		return nil
	},
}

func parityLetter(parity string) string {
	if parity == "" {
		return "N"
	}
	return strings.ToUpper(parity[:1])
}
