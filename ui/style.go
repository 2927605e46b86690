package ui

import (
	"strings"

	"github.com/inkyblackness/imgui-go"
	"github.com/pkg/errors"
)

type Style string

const (
	// StyleImGui keeps the stock dark colors
	StyleImGui  Style = "imgui"
	StyleVulkan Style = "vulkan"
	StyleGray   Style = "gray"
)

func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(s)); st {
	case StyleImGui, StyleVulkan, StyleGray:
		return st, nil
	case "":
		return StyleVulkan, nil
	}
	return "", errors.Errorf("unknown ui style %q", s)
}

type styleColor struct {
	id    imgui.StyleColorID
	color imgui.Vec4
}

func gray(v float32) imgui.Vec4 {
	return imgui.Vec4{X: v, Y: v, Z: v, W: 1}
}

func rgb(r, g, b float32) imgui.Vec4 {
	return imgui.Vec4{X: r / 255, Y: g / 255, Z: b / 255, W: 1}
}

// palette returns the colors a style overrides on top of the dark colors
func palette(style Style) []styleColor {
	var base, baseLight imgui.Vec4
	switch style {
	case StyleVulkan:
		base, baseLight = rgb(164, 30, 34), rgb(202, 36, 41)
	case StyleGray:
		base, baseLight = gray(0.3), gray(0.8)
	default:
		return nil
	}

	white, black := gray(1), gray(0)
	return []styleColor{
		{imgui.StyleColorText, white},
		{imgui.StyleColorTextDisabled, gray(0.5)},
		{imgui.StyleColorWindowBg, gray(0.1)},
		{imgui.StyleColorChildBg, black},
		{imgui.StyleColorPopupBg, gray(0.1)},
		{imgui.StyleColorBorder, gray(0.2)},
		{imgui.StyleColorBorderShadow, black},
		{imgui.StyleColorFrameBg, black},
		{imgui.StyleColorFrameBgHovered, gray(0.2)},
		{imgui.StyleColorFrameBgActive, gray(0.2)},
		{imgui.StyleColorTitleBg, gray(0.1)},
		{imgui.StyleColorTitleBgActive, gray(0.1)},
		{imgui.StyleColorTitleBgCollapsed, black},
		{imgui.StyleColorMenuBarBg, gray(0.1)},
		{imgui.StyleColorScrollbarBg, black},
		{imgui.StyleColorScrollbarGrab, gray(0.3)},
		{imgui.StyleColorScrollbarGrabHovered, gray(0.4)},
		{imgui.StyleColorScrollbarGrabActive, gray(0.5)},
		{imgui.StyleColorCheckMark, base},
		{imgui.StyleColorSliderGrab, base},
		{imgui.StyleColorSliderGrabActive, base},
		{imgui.StyleColorButton, base},
		{imgui.StyleColorButtonHovered, baseLight},
		{imgui.StyleColorButtonActive, baseLight},
		{imgui.StyleColorHeader, base},
		{imgui.StyleColorHeaderHovered, base},
		{imgui.StyleColorHeaderActive, base},
		{imgui.StyleColorResizeGrip, base},
		{imgui.StyleColorResizeGripHovered, base},
		{imgui.StyleColorResizeGripActive, base},
		{imgui.StyleColorPlotLines, base},
		{imgui.StyleColorPlotLinesHovered, base},
		{imgui.StyleColorPlotHistogram, base},
		{imgui.StyleColorPlotHistogramHovered, base},
		{imgui.StyleColorTextSelectedBg, base},
	}
}

func applyStyle(style Style) {
	imgui.StyleColorsDark()
	s := imgui.CurrentStyle()
	for _, c := range palette(style) {
		s.SetColor(c.id, c.color)
	}
}
