package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/smazurov/luxnode/internal/api/models"
	"github.com/smazurov/luxnode/internal/devices"
	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var flags commonFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Long:  `Enumerates the V4L2 capture devices that can be opened, in the order the sampler tries them.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := flags.load(); err != nil {
				return err
			}
			infos := devices.NewDetector(nil).Devices()
			if asJSON {
				return printDevicesJSON(cmd.OutOrStdout(), infos)
			}
			return printDevices(cmd.OutOrStdout(), infos)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")
	return cmd
}

func printDevices(w io.Writer, infos []v4l2.DeviceInfo) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No capture devices found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tDRIVER\tFORMATS\tID")
	for _, info := range infos {
		formats := make([]string, 0, len(info.Formats))
		for _, f := range info.Formats {
			formats = append(formats, f.FourCC)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			info.Path, info.Name, info.Driver, strings.Join(formats, ","), info.ID)
	}
	return tw.Flush()
}

func printDevicesJSON(w io.Writer, infos []v4l2.DeviceInfo) error {
	out := make([]models.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, models.ConvertDevice(info))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
