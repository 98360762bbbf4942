// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the walletgate TUI.
//
// All colors use Lip Gloss AdaptiveColor so the same palette works on light
// and dark terminals. Status is never conveyed by color alone: every state has
// an ASCII indicator in StatusIndicators.
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	box := theme.PINBoxFocused.Render(field)
//	msg := styles.RenderWarning("This is your last try")
package styles
