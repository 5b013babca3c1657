package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/smazurov/luxnode/internal/sensor"
	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateControlsCmd creates the controls command with list and set
// subcommands.
func CreateControlsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controls",
		Short: "Inspect and change camera controls",
	}
	cmd.AddCommand(createControlsListCmd(), createControlsSetCmd())
	return cmd
}

// openSampler builds a sampler from the config and resolves the camera the
// command works on.
func openSampler(flags *commonFlags, device string) (*sensor.Service, string, error) {
	opts, err := flags.load()
	if err != nil {
		return nil, "", err
	}
	s, err := settings(opts, device)
	if err != nil {
		return nil, "", err
	}
	svc := sensor.New(s, nil)
	path, err := svc.SelectDevice(s.Device)
	if err != nil {
		return nil, "", err
	}
	return svc, path, nil
}

func createControlsListCmd() *cobra.Command {
	var flags commonFlags
	var device string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the enabled user controls of a camera",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, path, err := openSampler(&flags, device)
			if err != nil {
				return err
			}
			descs, err := svc.Controls(path)
			if err != nil {
				return err
			}
			return printControls(cmd.OutOrStdout(), path, descs)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&device, "device", "d", "", "Camera device path")
	return cmd
}

func createControlsSetCmd() *cobra.Command {
	var flags commonFlags
	var device string

	cmd := &cobra.Command{
		Use:   "set <offset> <value>",
		Short: "Write one user control",
		Long:  `Writes a control addressed by its offset from V4L2_CID_BASE and prints the value read back.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, value, err := parseControlArgs(args)
			if err != nil {
				return err
			}
			svc, path, err := openSampler(&flags, device)
			if err != nil {
				return err
			}
			desc, err := svc.SetControl(path, offset, value)
			if err != nil {
				return err
			}
			if desc == nil {
				return fmt.Errorf("control %d is disabled on %s", offset, path)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", desc.Name, desc.Value)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&device, "device", "d", "", "Camera device path")
	return cmd
}

func parseControlArgs(args []string) (uint32, int32, error) {
	offset, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset %q: %w", args[0], err)
	}
	if offset >= v4l2.ControlCount {
		return 0, 0, fmt.Errorf("offset %d out of range, must be below %d", offset, v4l2.ControlCount)
	}
	value, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", args[1], err)
	}
	return uint32(offset), int32(value), nil
}

func printControls(w io.Writer, path string, descs []v4l2.ControlDescriptor) error {
	if len(descs) == 0 {
		_, err := fmt.Fprintf(w, "No enabled controls on %s\n", path)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tNAME\tMIN\tMAX\tSTEP\tDEFAULT\tVALUE")
	for _, d := range descs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			d.ID, d.Name, d.Minimum, d.Maximum, d.Step, d.Default, d.Value)
	}
	return tw.Flush()
}
