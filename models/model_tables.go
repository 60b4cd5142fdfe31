package models

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// TablesModel is a container model that holds all the main tables.
type TablesModel struct {
	// Populated from the app model just before rendering.
	SelectedBox   int
	SelectedEntry int
	ListHeight    int
	Scanning      bool

	WifiAvailable bool
	BtAvailable   bool

	AdapterData   []AdapterRow
	NetworkData   []NetworkRow
	KnownNetworks []KnownRow
	BtDevices     []BtRow
}

func (m TablesModel) Init() tea.Cmd {
	return nil
}

func (m TablesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// This model is for viewing only; all updates are handled by the app
	return m, nil
}

// View renders all tables in order.
func (m TablesModel) View() string {
	adapters := m.AdapterData
	if adapters == nil {
		adapters = []AdapterRow{}
	}
	networks := m.NetworkData
	if networks == nil {
		networks = []NetworkRow{}
	}
	known := m.KnownNetworks
	if known == nil {
		known = []KnownRow{}
	}
	devices := m.BtDevices
	if devices == nil {
		devices = []BtRow{}
	}

	adapterTable := TableModel("Adapters", m.SelectedBox == 0, m.SelectedEntry, -1, m.Scanning, adapters, nil, nil, nil)
	networksTable := TableModel("Networks", m.SelectedBox == 1, m.SelectedEntry, m.ListHeight, false, nil, networks, nil, nil)
	knownNetsTable := TableModel("Known Networks", m.SelectedBox == 2, m.SelectedEntry, m.ListHeight, false, nil, nil, known, nil)
	btTable := TableModel("Bluetooth", m.SelectedBox == 3, m.SelectedEntry, m.ListHeight, false, nil, nil, nil, devices)

	wifiView := adapterTable.View() + networksTable.View() + knownNetsTable.View()
	if !m.WifiAvailable {
		wifiView = ""
	}
	btView := btTable.View()
	if !m.BtAvailable {
		btView = ""
	}

	return strings.Join([]string{wifiView, btView}, "")
}
