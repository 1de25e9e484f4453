package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/marcusolsson/tui-go"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type ManagerConsole struct {
	cli *cli.App
}

func NewManagerConsole(cli *cli.App) *ManagerConsole {
	return &ManagerConsole{cli: cli}
}

func (mc *ManagerConsole) Execute(args []string) error {
	return mc.cli.Run(append(make([]string, 1, len(args)+1), args...))
}

func completer(commands cli.Commands) prompt.Completer {
	cmdHints := make([]prompt.Suggest, 0, len(commands))
	for _, command := range commands {
		cmdHints = append(cmdHints, prompt.Suggest{Text: command.Name, Description: command.Usage})
	}
	return func(doc prompt.Document) []prompt.Suggest {
		before := doc.TextBeforeCursor()
		wordsBefore := strings.Split(before, " ")
		commandBefore := wordsBefore[0]
		if len(wordsBefore) == 1 {
			return prompt.FilterHasPrefix(cmdHints, commandBefore, true)
		}

		var flagHints []prompt.Suggest
		if strings.Contains(before, "--help") {
			return flagHints
		}

		for _, command := range commands {
			if !command.HasName(commandBefore) {
				continue
			}

			for _, flag := range command.VisibleFlags() {
				tag := "--" + flag.Names()[0]
				if strings.Contains(before, tag) {
					continue
				}
				neededValue := "="
				if _, ok := flag.(*cli.BoolFlag); ok {
					neededValue = " "
				}
				flagHints = append(flagHints, prompt.Suggest{
					Text:        tag + neededValue,
					Description: strings.ReplaceAll(flag.String(), "\t", " "),
				})
			}
			break
		}

		return prompt.FilterFuzzy(flagHints, wordsBefore[len(wordsBefore)-1], true)
	}
}

func (mc *ManagerConsole) Cli(ctx context.Context) error {
	completer := completer(mc.cli.Commands)
	var history []string
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			t := prompt.Input(">>> ", completer,
				prompt.OptionHistory(history),
				prompt.OptionShowCompletionAtStart(),
			)
			if err := mc.Execute(strings.Fields(t)); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err)
			}
			history = append(history, t)
		}
	}
}

// managerClient talks to the manager service over its unix socket.
type managerClient struct {
	cc *grpc.ClientConn
}

func newManagerClient(socketPath string) (*managerClient, error) {
	cc, err := grpc.Dial("passthrough:///unix:///"+socketPath, grpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	return &managerClient{cc: cc}, nil
}

func (mc *managerClient) invoke(ctx context.Context, method string, in interface{}, out interface{}) error {
	args := &structpb.Struct{}
	if in != nil {
		var err error
		if args, err = toStruct(in); err != nil {
			return err
		}
	}

	if out == nil {
		return callError(mc.cc.Invoke(ctx, "/"+managerServiceName+"/"+method, args, new(emptypb.Empty)))
	}

	reply := new(structpb.Struct)
	if err := mc.cc.Invoke(ctx, "/"+managerServiceName+"/"+method, args, reply); err != nil {
		return callError(err)
	}
	return fromStruct(reply, out)
}

// dashboard opens the dashboard stream and returns a receiver for its frames.
func (mc *managerClient) dashboard(ctx context.Context) (func() (*DashboardResponse, error), error) {
	stream, err := mc.cc.NewStream(ctx, &managerServiceDesc.Streams[0], "/"+managerServiceName+"/Dashboard")
	if err != nil {
		return nil, callError(err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, callError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, callError(err)
	}

	return func() (*DashboardResponse, error) {
		frame := new(structpb.Struct)
		if err := stream.RecvMsg(frame); err != nil {
			return nil, callError(err)
		}
		recv := new(DashboardResponse)
		if err := fromStruct(frame, recv); err != nil {
			return nil, err
		}
		return recv, nil
	}, nil
}

func callError(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		return errors.New(s.Message())
	}
	return err
}

func ConfigureManagerConsole(socketPath string) (*ManagerConsole, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return nil, errors.Wrap(err, "manager socket is not available, is the node running")
	}
	client, err := newManagerClient(socketPath)
	if err != nil {
		return nil, err
	}

	app := cli.NewApp()
	app.CommandNotFound = func(ctx *cli.Context, cmd string) {
		fmt.Printf("No help topic for '%v'\n", cmd)
	}
	app.UseShortOptionHandling = true
	jsonFlag := &cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Required: false, Usage: "echo in json format"}

	app.Commands = []*cli.Command{
		{
			Name:    "dial_peer",
			Aliases: []string{"dp"},
			Usage:   "connect a new peer",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Required: true, Usage: "id@ip:port"},
				&cli.BoolFlag{Name: "persistent", Aliases: []string{"p"}, Required: false},
			},
			Action: dialPeerCMD(client),
		},
		{
			Name:    "status",
			Aliases: []string{"s"},
			Usage:   "display the current status of the node",
			Flags: []cli.Flag{
				jsonFlag,
			},
			Action: printCMD(client, "Status", new(StatusResponse)),
		},
		{
			Name:    "net_info",
			Aliases: []string{"ni"},
			Usage:   "display network data",
			Flags: []cli.Flag{
				jsonFlag,
			},
			Action: printCMD(client, "NetInfo", new(NetInfoResponse)),
		},
		{
			Name:    "dashboard",
			Aliases: []string{"db"},
			Usage:   "show node and ledger dashboard",
			Action:  dashboardCMD(client),
		},
		{
			Name:    "exit",
			Aliases: []string{"e"},
			Usage:   "exit",
			Action:  exitCMD,
		},
	}

	for _, command := range app.Commands {
		command.Flags = append(command.Flags, cli.HelpFlag)
	}

	app.Setup()
	return NewManagerConsole(app), nil
}

func exitCMD(_ *cli.Context) error {
	os.Exit(0)
	return nil
}

func printCMD(client *managerClient, method string, response interface{}) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		if err := client.invoke(c.Context, method, nil, response); err != nil {
			return err
		}

		if c.Bool("json") {
			encoded, err := json.Marshal(response)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.App.Writer, string(encoded))
			return nil
		}

		encoded, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(c.App.Writer, string(encoded))
		return nil
	}
}

func dialPeerCMD(client *managerClient) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		err := client.invoke(c.Context, "DialPeer", DialPeerRequest{
			Address:    c.String("address"),
			Persistent: c.Bool("persistent"),
		}, nil)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(c.App.Writer, "OK")
		return nil
	}
}

func dashboardCMD(client *managerClient) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()
		next, err := client.dashboard(ctx)
		if err != nil {
			return err
		}
		recv, err := next()
		if err != nil {
			return err
		}

		box := tui.NewVBox()
		ui, err := tui.New(tui.NewHBox(box, tui.NewSpacer()))
		if err != nil {
			return err
		}
		ui.SetKeybinding("Esc", func() { ui.Quit() })
		ui.SetKeybinding("q", func() { ui.Quit() })
		errCh := make(chan error, 2)
		frames := make(chan *DashboardResponse)

		dashboard := updateDashboard(box, recv)

		go func() { errCh <- ui.Run() }()
		go func() {
			for {
				recv, err := next()
				if err != nil {
					errCh <- err
					return
				}
				select {
				case frames <- recv:
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				ui.Quit()
				return ctx.Err()
			case err := <-errCh:
				ui.Quit()
				return err
			case recv := <-frames:
				dashboard(recv)
				ui.Repaint()
			}
		}
	}
}

func syncPercent(recv *DashboardResponse) string {
	if recv.MaxPeerHeight == 0 {
		return "100% "
	}
	return fmt.Sprintf("%d%% ", int((float64(recv.LatestHeight)/float64(recv.MaxPeerHeight))*100))
}

func updateDashboard(box *tui.Box, recv *DashboardResponse) func(recv *DashboardResponse) {
	progress := tui.NewProgress(int(recv.MaxPeerHeight))
	box.Append(tui.NewHBox(progress, tui.NewSpacer()))

	table := tui.NewTable(0, 0)
	labelNetworkSynchronizationPercent := tui.NewLabel(syncPercent(recv))
	table.AppendRow(tui.NewLabel("Network Synchronization"), labelNetworkSynchronizationPercent)
	labelBlockHeight := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Block Height"), labelBlockHeight)
	labelLastBlockTime := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Latest Block Time"), labelLastBlockTime)
	labelBlockProcessingTime := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Block Processing Time"), labelBlockProcessingTime)
	labelMemoryUsage := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Memory Usage"), labelMemoryUsage)
	labelPeersCount := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Peers Count"), labelPeersCount)
	labelDepositNonce := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Deposit Nonce"), labelDepositNonce)
	labelMaxGeneration := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Withdrawal Generation"), labelMaxGeneration)
	labelBudget := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Withdrawable Limit"), labelBudget)
	labelCustody := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Custody Balance"), labelCustody)
	labelFallback := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Fallback"), labelFallback)
	box.Append(tui.NewHBox(table, tui.NewSpacer()))
	box.Append(tui.NewSpacer())

	update := func(recv *DashboardResponse) {
		labelNetworkSynchronizationPercent.SetText(syncPercent(recv))
		labelBlockHeight.SetText(fmt.Sprintf("%d of %d", recv.LatestHeight, recv.MaxPeerHeight))
		labelLastBlockTime.SetText(recv.Timestamp)
		labelBlockProcessingTime.SetText(fmt.Sprintf("%f sec", recv.Duration))
		labelMemoryUsage.SetText(fmt.Sprintf("%d MB", recv.MemoryUsage/1024/1024))
		labelPeersCount.SetText(fmt.Sprintf("%d", recv.PeersCount))
		labelDepositNonce.SetText(fmt.Sprintf("%d", recv.DepositNonce))
		labelMaxGeneration.SetText(fmt.Sprintf("%d", recv.MaxGeneration))
		labelBudget.SetText(recv.Budget)
		labelCustody.SetText(recv.CustodyBalance)
		if recv.FallbackActive {
			labelFallback.SetText("active")
		} else {
			labelFallback.SetText("inactive")
		}
		progress.SetMax(int(recv.MaxPeerHeight))
		progress.SetCurrent(int(recv.LatestHeight))
	}
	update(recv)

	return update
}
