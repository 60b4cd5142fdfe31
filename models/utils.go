package models

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"wlcontrol/common"
)

func windowWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

func windowDimensions() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80, 24
	}
	return width, height
}

// signalPercent maps a station signal strength in centi-dBm onto the
// usual 0-100 scale. -50 dBm and better is full strength, -100 dBm is
// zero.
func signalPercent(centiDBm int16) int {
	dbm := int(centiDBm) / 100
	pct := 2 * (dbm + 100)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func rssiLabel(rssi int16) string {
	if rssi == common.RSSIUnknown {
		return "-"
	}
	return fmt.Sprintf("%d dBm", rssi)
}

func batteryLabel(battery int) string {
	if battery == common.BatteryUnknown {
		return "-"
	}
	return strconv.Itoa(battery) + "%"
}

func padHeaders(headers []string, headersLengths []int) []string {
	if len(headers) == 0 {
		return headers
	}
	totalWidth := max(windowWidth()-2, 1)
	numHeaders := len(headers)
	fixedTotal := 0
	var flexibleIndices []int
	for i, length := range headersLengths {
		if length > 0 {
			fixedTotal += length + 4
		} else {
			flexibleIndices = append(flexibleIndices, i)
		}
	}
	remainingWidth := totalWidth - fixedTotal
	if remainingWidth < 0 {
		remainingWidth = 0
	}
	flexColWidth := 0
	if len(flexibleIndices) > 0 {
		flexColWidth = remainingWidth / len(flexibleIndices)
	}
	for i := range headers {
		var leftPaddingCount, rightPaddingCount int
		var colWidth int
		if headersLengths[i] > 0 {
			leftPaddingCount = 2
			rightPaddingCount = 2
		} else {
			colWidth = flexColWidth
			headerLen := len(headers[i])
			extra := colWidth - headerLen
			if extra <= 0 {
				continue
			}
			leftPaddingCount = extra / 2
			rightPaddingCount = extra - leftPaddingCount
		}
		leftPadding := strings.Repeat(" ", leftPaddingCount)
		rightPadding := strings.Repeat(" ", rightPaddingCount)
		headers[i] = fmt.Sprintf("%s%s%s", leftPadding, headers[i], rightPadding)
	}
	currentTotal := 0
	for _, h := range headers {
		currentTotal += len(h)
	}
	diff := totalWidth - currentTotal
	for i := 0; i < diff; i++ {
		headers[i%numHeaders] += " "
	}
	return headers
}

func calcTitle(title string, selected bool) string {
	color := "#a7abca"
	bold := false
	if selected {
		color = "#9cca69"
		bold = true
	}
	width := windowWidth()
	repeatCount := max(width-4-len(title), 0)
	return lipgloss.NewStyle().
		Bold(bold).
		Foreground(lipgloss.Color(color)).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("┌ %s %s┐", title, strings.Repeat("─", repeatCount)))
}

var boxBorder = lipgloss.Border{
	Bottom: "─", Left: "│", Right: "│",
	BottomLeft: "└", BottomRight: "┘",
}
var activeBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9cca69"))
var inactiveBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a7abca"))

func boxStyle(selectedRow int, selectedBox bool) func(row, col int) lipgloss.Style {
	return func(row int, col int) lipgloss.Style {
		switch {
		case row == 0:
			return lipgloss.NewStyle().
				Bold(true).
				Foreground(func() lipgloss.Color {
					if selectedBox {
						return lipgloss.Color("#cda162")
					}
					return lipgloss.Color("#a7abca")
				}()).
				AlignHorizontal(lipgloss.Center)
		case row == min(selectedRow+2, 11) && selectedBox:
			return lipgloss.NewStyle().
				Background(lipgloss.Color("#a7abca")).
				Foreground(lipgloss.Color("#444a66")).
				AlignHorizontal(lipgloss.Center)
		default:
			return lipgloss.NewStyle().Foreground(lipgloss.Color("#a7abca")).AlignHorizontal(lipgloss.Center)
		}
	}
}

func formatAdapterData(adapters []AdapterRow, scanning bool) [][]string {
	data := [][]string{
		padHeaders([]string{"", "Name", "Address", "Powered", "Scanning"}, []int{5, -1, -1, -1, -1}), {""},
	}
	for _, a := range adapters {
		active := "     "
		if a.Active {
			active = "  >  "
		}
		powered := "Off"
		if a.Powered {
			powered = "On"
		}
		scan := "false"
		if a.Active && scanning {
			scan = "true"
		}
		row := []string{active, a.Name, a.Address, powered, scan}
		data = append(data, row)
	}
	return data
}

func formatNetworksData(networks []NetworkRow, selectedRow int, height int) [][]string {
	data := [][]string{
		padHeaders([]string{"Name", "Security", "Signal", "State"}, []int{-1, -1, -1, -1}), {""},
	}
	window := formatArrays(networks, selectedRow, height)
	for _, n := range window {
		row := []string{n.SSID, n.Security, strconv.Itoa(signalPercent(n.Signal)) + "%", n.State.String()}
		data = append(data, row)
	}
	for i := 0; i < height-len(networks); i++ {
		data = append(data, []string{""})
	}
	return data
}

func formatKnownNetworksData(networks []KnownRow, selectedRow int, height int) [][]string {
	base := [][]string{
		padHeaders([]string{"Name", "Security", "Hidden", "Auto Connect", "Last Used"}, []int{-1, 23, 8, 14, -1}), {""},
	}
	window := formatArrays(networks, selectedRow, height)
	for _, n := range window {
		row := []string{n.SSID, n.Security, strconv.FormatBool(n.Hidden), strconv.FormatBool(n.AutoConnect), n.LastUsed}
		base = append(base, row)
	}
	if height < 10 {
		height--
	}
	for i := 0; i < height-len(networks); i++ {
		base = append(base, []string{""})
	}
	return base
}

func formatBtDevicesData(devices []BtRow, selectedRow int, height int) [][]string {
	data := [][]string{
		padHeaders([]string{"Name", "Address", "Type", "Battery", "Signal", "State"}, []int{-1, 19, 14, 9, 9, -1}), {""},
	}
	window := formatArrays(devices, selectedRow, height)
	for _, d := range window {
		icon := d.Icon
		if icon == "" {
			icon = "-"
		}
		row := []string{d.Label, d.Address, icon, batteryLabel(d.Battery), rssiLabel(d.RSSI), d.State.String()}
		data = append(data, row)
	}
	for i := 0; i < height-len(devices); i++ {
		data = append(data, []string{""})
	}
	return data
}

func formatArrays[ArrType NetworkRow | KnownRow | BtRow](arr []ArrType, selectedIndex int, windowSize int) []ArrType {
	start := 0
	if selectedIndex >= windowSize {
		start = selectedIndex - windowSize + 1
	}
	end := start + windowSize
	if end > len(arr) {
		end = len(arr)
		start = max(end-windowSize, 0)
	}
	if start > end {
		start = end
	}
	return arr[start:end]
}

// CalculatePadding returns the left offset that centers the first line
// of a rendered block in the terminal.
func CalculatePadding(s string) int {
	totalWidth := windowWidth()
	line := strings.Split(s, "\n")[0]
	textWidth := lipgloss.Width(line)
	return max(0, (totalWidth-textWidth)/2)
}
