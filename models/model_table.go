package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/table"
)

type TableData struct {
	title           string
	isTableSelected bool
	selectedRow     int
	height          int
	scanning        bool
	adapterData     []AdapterRow
	networkData     []NetworkRow
	knownNetworks   []KnownRow
	btDevices       []BtRow
}

func TableModel(
	title string,
	isTableSelected bool,
	selectedRow int,
	height int,
	scanning bool,
	adapterData []AdapterRow,
	networkData []NetworkRow,
	knownNets []KnownRow,
	btDevices []BtRow,
) TableData {
	return TableData{
		title:           title,
		isTableSelected: isTableSelected,
		selectedRow:     selectedRow,
		height:          height,
		scanning:        scanning,
		adapterData:     adapterData,
		networkData:     networkData,
		knownNetworks:   knownNets,
		btDevices:       btDevices,
	}
}

func (m TableData) Init() tea.Cmd {
	return nil
}

func (m TableData) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m TableData) View() string {
	borderStyle := inactiveBorderStyle
	if m.isTableSelected {
		borderStyle = activeBorderStyle
	}

	var tableData [][]string
	if m.adapterData != nil {
		tableData = formatAdapterData(m.adapterData, m.scanning)
	} else if m.networkData != nil {
		tableData = formatNetworksData(m.networkData, m.selectedRow, m.height)
	} else if m.knownNetworks != nil {
		tableData = formatKnownNetworksData(m.knownNetworks, m.selectedRow, m.height)
	} else {
		tableData = formatBtDevicesData(m.btDevices, m.selectedRow, m.height)
	}

	table := table.New().
		Border(boxBorder).
		BorderColumn(false).
		BorderStyle(borderStyle).
		StyleFunc(boxStyle(m.selectedRow, m.isTableSelected)).
		Rows(tableData...)

	return (calcTitle(m.title, m.isTableSelected) + table.Render()) + "\n"
}
