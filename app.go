package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/godbus/dbus/v5"

	"wlcontrol/backend"
	"wlcontrol/common"
	"wlcontrol/models"
)

// backendEventMsg wraps one event off the backend channel.
type backendEventMsg struct{ Event common.Event }

// backendClosedMsg means the backend loop exited and the event channel
// is drained.
type backendClosedMsg struct{}

type promptKind int

const (
	promptNone promptKind = iota
	promptPassphrase
	promptPin
	promptPasskey
	promptAlias
)

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmPairing
	confirmForget
	confirmForgetKnown
	confirmRemove
)

const (
	boxAdapters = iota
	boxNetworks
	boxKnown
	boxBluetooth
)

type App struct {
	Width, Height int
	selectedBox   int
	selectedEntry int

	commands chan<- common.Command
	events   <-chan common.Event

	wifi wifiStore
	bt   btStore

	Tables       models.TablesModel
	StatusBar    models.StatusBarData
	Confirmation models.Confirmation

	prompt      promptKind
	promptAddr  string
	confirm     confirmKind
	confirmPath dbus.ObjectPath
	confirmAddr string

	Err error
}

func NewApp() App {
	app := App{
		wifi:         newWifiStore(),
		bt:           newBtStore(),
		StatusBar:    models.ModelStatusBar(),
		Confirmation: models.ModelConfirmation(),
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		app.Err = fmt.Errorf("failed to connect to D-Bus: %w", err)
		return app
	}

	app.commands, app.events = backend.Start(conn)
	return app
}

// waitForEvent blocks on the backend channel and hands the next event
// to the update loop. It is re-armed after every delivery.
func waitForEvent(events <-chan common.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return backendClosedMsg{}
		}
		return backendEventMsg{Event: ev}
	}
}

// send never blocks; the backend drains its command channel quickly
// and a full channel means it is going down anyway.
func (m App) send(cmd common.Command) {
	select {
	case m.commands <- cmd:
	default:
	}
}

func (m App) Init() tea.Cmd {
	if m.Err != nil {
		return nil
	}
	return waitForEvent(m.events)
}

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case backendClosedMsg:
		return m, tea.Quit

	case backendEventMsg:
		m = m.applyEvent(msg.Event)
		m.clampSelection()
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if m.prompt != promptNone {
			cmds = append(cmds, textinput.Blink)
		}
		return m, tea.Batch(cmds...)

	case models.SubmitConfirmationMsg:
		kind := m.confirm
		m.confirm = confirmNone
		m.Confirmation = models.ModelConfirmation()

		if msg.Value {
			switch kind {
			case confirmPairing:
				m.send(common.BtPairingResponse{Accept: true})
			case confirmForget:
				m.wifi.forgetting[m.confirmPath] = true
				m.send(common.WifiForget{Path: m.confirmPath})
			case confirmForgetKnown:
				m.wifi.forgettingKnown[m.confirmPath] = true
				m.send(common.WifiForgetKnown{Path: m.confirmPath})
			case confirmRemove:
				m.bt.removing[m.confirmAddr] = true
				m.send(common.BtRemove{Address: m.confirmAddr})
			}
		} else if kind == confirmPairing {
			m.send(common.BtPairingResponse{Accept: false})
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil
	}

	if m.confirm != confirmNone {
		var cmd tea.Cmd
		var popup tea.Model
		popup, cmd = m.Confirmation.Update(msg)
		m.Confirmation = popup.(models.Confirmation)
		return m, cmd
	}

	if m.prompt != promptNone {
		return m.updatePrompt(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m App) updatePrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			switch m.prompt {
			case promptPassphrase:
				m.send(common.PassphraseResponse{Cancel: true})
			case promptPin:
				m.send(common.BtPairingPinResponse{Cancel: true})
			case promptPasskey:
				m.send(common.BtPairingPasskeyResponse{Cancel: true})
			case promptAlias:
				// Nothing pending backend-side, just drop the input.
			}
			m = m.resetPrompt()
			return m, nil

		case "enter":
			value := m.StatusBar.Input.Value()
			switch m.prompt {
			case promptPassphrase:
				m.send(common.PassphraseResponse{Passphrase: value})
			case promptPin:
				m.send(common.BtPairingPinResponse{Pin: value})
			case promptPasskey:
				passkey, err := strconv.ParseUint(value, 10, 32)
				if err != nil {
					m.StatusBar.Notice = "Passkey must be a number"
					m.StatusBar.Input.SetValue("")
					return m, nil
				}
				m.send(common.BtPairingPasskeyResponse{Passkey: uint32(passkey)})
			case promptAlias:
				if value != "" {
					m.send(common.BtSetAlias{Address: m.promptAddr, Alias: value})
				}
			}
			m = m.resetPrompt()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.StatusBar.Input, cmd = m.StatusBar.Input.Update(msg)
	return m, cmd
}

func (m App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.send(common.Shutdown{})
		return m, tea.Quit

	case "up", "k":
		if m.selectedEntry > 0 {
			m.selectedEntry--
		}

	case "down", "j":
		if m.selectedEntry < m.rowsInBox(m.selectedBox)-1 {
			m.selectedEntry++
		}

	case "shift+tab":
		m.selectedBox = m.stepBox(-1)
		m.selectedEntry = 0

	case "tab":
		m.selectedBox = m.stepBox(1)
		m.selectedEntry = 0

	case "r":
		if m.selectedBox == boxBluetooth {
			if m.bt.discovering {
				m.send(common.BtStopScan{})
			} else {
				m.send(common.BtScan{})
			}
		} else {
			m.send(common.WifiScan{})
		}

	case "P":
		if m.selectedBox == boxBluetooth {
			m.send(common.BtSetPowered{Powered: !m.bt.powered})
		} else {
			m.send(common.WifiSetPowered{Powered: !m.wifi.powered})
		}

	case "v":
		if m.selectedBox == boxBluetooth {
			m.send(common.BtSetDiscoverable{Discoverable: !m.bt.discoverable})
		}

	case "t":
		if m.selectedBox == boxBluetooth {
			if row, ok := m.selectedBtRow(); ok {
				m.send(common.BtSetTrusted{Address: row.Address, Trusted: !row.Trusted})
			}
		}

	case "p":
		if m.selectedBox == boxBluetooth {
			if row, ok := m.selectedBtRow(); ok {
				m.send(common.BtPair{Address: row.Address})
			}
		}

	case "a":
		if m.selectedBox == boxBluetooth {
			if row, ok := m.selectedBtRow(); ok {
				m.prompt = promptAlias
				m.promptAddr = row.Address
				m.StatusBar.Input.Placeholder = fmt.Sprintf("Alias for %s...", row.Address)
				m.StatusBar.Input.SetValue(row.Label)
				m.StatusBar.Input.Focus()
				return m, textinput.Blink
			}
		}

	case "enter", " ":
		return m.handleSelect()

	case "delete":
		return m.handleDelete()
	}
	return m, nil
}

func (m App) handleSelect() (tea.Model, tea.Cmd) {
	switch m.selectedBox {
	case boxAdapters:
		rows := m.wifi.adapterRows()
		if m.selectedEntry >= len(rows) {
			break
		}
		row := rows[m.selectedEntry]
		if row.Active {
			m.send(common.WifiSetPowered{Powered: !m.wifi.powered})
		} else {
			m.send(common.WifiSwitchAdapter{Path: row.Path})
		}

	case boxNetworks:
		rows := m.wifi.networkRows()
		if m.selectedEntry >= len(rows) {
			break
		}
		row := rows[m.selectedEntry]
		if row.State == common.WifiStateConnected {
			m.wifi.disconnecting = true
			m.send(common.WifiDisconnect{})
		} else {
			m.send(common.WifiConnect{Path: row.Path})
		}

	case boxKnown:
		m.StatusBar.Notice = "Network is out of range"

	case boxBluetooth:
		row, ok := m.selectedBtRow()
		if !ok {
			break
		}
		if row.State == common.BtStateConnected {
			m.bt.disconnecting[row.Address] = true
			m.send(common.BtDisconnect{Address: row.Address})
		} else {
			m.send(common.BtConnect{Address: row.Address})
		}
	}
	return m, nil
}

func (m App) handleDelete() (tea.Model, tea.Cmd) {
	switch m.selectedBox {
	case boxNetworks:
		rows := m.wifi.networkRows()
		if m.selectedEntry >= len(rows) {
			break
		}
		row := rows[m.selectedEntry]
		if row.State == common.WifiStateAvailable || row.State == common.WifiStateConnecting {
			break
		}
		m.confirm = confirmForget
		m.confirmPath = row.Path
		m.Confirmation.Message = fmt.Sprintf("Forget network '%s'?\n", row.SSID)

	case boxKnown:
		rows := m.wifi.knownRows()
		if m.selectedEntry >= len(rows) {
			break
		}
		row := rows[m.selectedEntry]
		m.confirm = confirmForgetKnown
		m.confirmPath = row.Path
		m.Confirmation.Message = fmt.Sprintf("Forget network '%s'?\n", row.SSID)

	case boxBluetooth:
		row, ok := m.selectedBtRow()
		if !ok {
			break
		}
		m.confirm = confirmRemove
		m.confirmAddr = row.Address
		m.Confirmation.Message = fmt.Sprintf("Remove device '%s'?\n", row.Label)
	}
	return m, nil
}

// applyEvent folds one backend event into the stores and pops whatever
// interaction it asks for.
func (m App) applyEvent(ev common.Event) App {
	m.wifi.apply(ev)
	m.bt.apply(ev)

	switch ev := ev.(type) {
	case common.PassphraseRequest:
		m.prompt = promptPassphrase
		m.StatusBar.Input.Placeholder = fmt.Sprintf("Passphrase for %s...", ev.Name)
		m.StatusBar.Input.EchoMode = textinput.EchoPassword
		m.StatusBar.Input.Focus()

	case common.BtPairing:
		switch ev.Kind {
		case common.PairingConfirm:
			m.confirm = confirmPairing
			m.Confirmation = models.ModelConfirmation()
			m.Confirmation.Message = fmt.Sprintf("Confirm code %s for %s?\n", ev.Code, ev.Address)
		case common.PairingAuthorize:
			m.confirm = confirmPairing
			m.Confirmation = models.ModelConfirmation()
			m.Confirmation.Message = fmt.Sprintf("Allow pairing with %s?\n", ev.Address)
		case common.PairingRequestPin:
			m.prompt = promptPin
			m.StatusBar.Input.Placeholder = fmt.Sprintf("PIN for %s...", ev.Address)
			m.StatusBar.Input.EchoMode = textinput.EchoNormal
			m.StatusBar.Input.Focus()
		case common.PairingRequestPasskey:
			m.prompt = promptPasskey
			m.StatusBar.Input.Placeholder = fmt.Sprintf("Passkey for %s...", ev.Address)
			m.StatusBar.Input.EchoMode = textinput.EchoNormal
			m.StatusBar.Input.Focus()
		case common.PairingDisplayPin, common.PairingDisplayPasskey:
			m.StatusBar.Notice = fmt.Sprintf("Enter code %s on %s", ev.Code, ev.Address)
		}

	case common.WifiError:
		m.StatusBar.Notice = ev.Message
	case common.BtError:
		m.StatusBar.Notice = ev.Message
	case common.BtOperationDone:
		if ev.Error != "" {
			m.StatusBar.Notice = ev.Error
		}
	case common.CaptivePortal:
		m.StatusBar.Notice = "Captive portal: " + ev.URL
	case common.WifiConnected:
		if ev.Path != "" {
			m.StatusBar.Notice = ""
		}
	}
	return m
}

func (m App) resetPrompt() App {
	m.prompt = promptNone
	m.promptAddr = ""
	m.StatusBar.Input.Blur()
	m.StatusBar.Input.SetValue("")
	m.StatusBar.Input.Placeholder = ""
	m.StatusBar.Input.EchoMode = textinput.EchoNormal
	return m
}

func (m App) rowsInBox(box int) int {
	switch box {
	case boxAdapters:
		return len(m.wifi.devices)
	case boxNetworks:
		return len(m.wifi.networks)
	case boxKnown:
		return len(m.wifi.knownRows())
	case boxBluetooth:
		return len(m.bt.order)
	}
	return 0
}

func (m App) selectedBtRow() (models.BtRow, bool) {
	rows := m.bt.rows()
	if m.selectedEntry >= len(rows) {
		return models.BtRow{}, false
	}
	return rows[m.selectedEntry], true
}

// visibleBoxes lists the boxes that can take focus given which daemons
// are up.
func (m App) visibleBoxes() []int {
	var boxes []int
	if m.wifi.available {
		boxes = append(boxes, boxAdapters, boxNetworks, boxKnown)
	}
	if m.bt.available {
		boxes = append(boxes, boxBluetooth)
	}
	if len(boxes) == 0 {
		boxes = []int{boxAdapters}
	}
	return boxes
}

func (m App) stepBox(dir int) int {
	boxes := m.visibleBoxes()
	current := 0
	for i, b := range boxes {
		if b == m.selectedBox {
			current = i
		}
	}
	next := current + dir
	if next < 0 {
		next = 0
	}
	if next > len(boxes)-1 {
		next = len(boxes) - 1
	}
	return boxes[next]
}

func (m *App) clampSelection() {
	boxes := m.visibleBoxes()
	found := false
	for _, b := range boxes {
		if b == m.selectedBox {
			found = true
		}
	}
	if !found {
		m.selectedBox = boxes[0]
		m.selectedEntry = 0
	}
	if rows := m.rowsInBox(m.selectedBox); m.selectedEntry >= rows {
		m.selectedEntry = max(rows-1, 0)
	}
}

func (m App) View() string {
	if m.Err != nil {
		return models.ModelError(m.Err).View()
	}

	m.Tables.SelectedBox = m.selectedBox
	m.Tables.SelectedEntry = m.selectedEntry
	m.Tables.ListHeight = 8
	m.Tables.Scanning = m.wifi.scanning
	m.Tables.WifiAvailable = m.wifi.available
	m.Tables.BtAvailable = m.bt.available
	m.Tables.AdapterData = m.wifi.adapterRows()
	m.Tables.NetworkData = m.wifi.networkRows()
	m.Tables.KnownNetworks = m.wifi.knownRows()
	m.Tables.BtDevices = m.bt.rows()

	if !m.wifi.available && !m.bt.available {
		return lipgloss.Place(max(m.Width, 1), max(m.Height-1, 1),
			lipgloss.Center, lipgloss.Center,
			"Neither iwd nor bluetoothd is reachable on the system bus") +
			"\n" + m.StatusBar.View()
	}

	if m.confirm != confirmNone {
		popup := lipgloss.Place(max(m.Width, 1), max(m.Height-1, 1),
			lipgloss.Center, lipgloss.Center, m.Confirmation.View())
		return popup + "\n" + m.StatusBar.View()
	}

	return m.Tables.View() + m.StatusBar.View()
}
