package tray

import (
	"context"
	"fmt"
	"log"

	"github.com/getlantern/systray"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
	"github.com/mutelink/mutelink/internal/models"
)

var modes = []models.InteractionMode{models.ModeToggle, models.ModeSmart, models.ModePushToTalk}

var (
	state   DaemonState
	onStart func()
	onExit  func()
	icons   map[feedback.Icon][]byte
	stop    context.CancelFunc

	deviceItem    *systray.MenuItem
	callItem      *systray.MenuItem
	toggleItem    *systray.MenuItem
	focusItem     *systray.MenuItem
	modeItem      *systray.MenuItem
	modeItems     []*systray.MenuItem
	autoFocusItem *systray.MenuItem
	portItem      *systray.MenuItem
	quitItem      *systray.MenuItem
)

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called when the tray is ready (start the daemon here).
// onExitFn is called when the tray exits (cleanup here).
func Run(s DaemonState, onStartFn, onExitFn func()) {
	state = s
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func onReady() {
	var err error
	icons, err = buildIcons()
	if err != nil {
		log.Printf("[tray] %v", err)
	}
	setIcon(feedback.IconDisconnected)
	systray.SetTooltip("MuteLink")

	header := systray.AddMenuItem("MuteLink", "")
	header.Disable()
	deviceItem = systray.AddMenuItem("Button: not connected", "")
	deviceItem.Disable()
	callItem = systray.AddMenuItem("Call: none", "")
	callItem.Disable()

	systray.AddSeparator()

	toggleItem = systray.AddMenuItem("Toggle Mute", "Mute or unmute the active call")
	focusItem = systray.AddMenuItem("Show Call Tab", "Bring the call tab to the front")
	modeItem = systray.AddMenuItem("Button Mode", "How the button reacts to taps and holds")
	for _, m := range modes {
		modeItems = append(modeItems, modeItem.AddSubMenuItem(m.Label(), ""))
	}
	autoFocusItem = systray.AddMenuItem("Show Call Tab on Press", "Focus the call tab when the button is pressed")

	systray.AddSeparator()

	portItem = systray.AddMenuItem("Starting...", "")
	portItem.Disable()
	quitItem = systray.AddMenuItem("Quit", "Shut down MuteLink daemon")

	if onStart != nil {
		onStart()
	}

	if state != nil {
		portItem.SetTitle(fmt.Sprintf("Control port %d, browser port %d", state.Port(), state.BridgePort()))

		var ctx context.Context
		ctx, stop = context.WithCancel(context.Background())
		go watchState(ctx)
	}

	go handleClicks()
}

func onQuit() {
	if stop != nil {
		stop()
	}
	if onExit != nil {
		onExit()
	}
}

func setIcon(icon feedback.Icon) {
	if data, ok := icons[icon]; ok {
		systray.SetIcon(data)
	}
}

// watchState mirrors coordinator snapshots into the icon and menu.
func watchState(ctx context.Context) {
	for snap := range state.Subscribe(ctx) {
		update(snap)
	}
}

func update(snap models.Snapshot) {
	for _, icon := range feedback.Icons {
		if icon.String() == snap.Icon {
			setIcon(icon)
		}
	}
	systray.SetTooltip(formatTooltip(snap))
	deviceItem.SetTitle(formatDevice(snap))
	callItem.SetTitle(formatCall(snap))
	toggleItem.SetTitle(toggleTitle(snap))

	if snap.ActiveCall != nil && snap.Muted != nil {
		toggleItem.Enable()
	} else {
		toggleItem.Disable()
	}
	if snap.ActiveCall != nil {
		focusItem.Enable()
	} else {
		focusItem.Disable()
	}

	for i, m := range modes {
		if m == snap.InteractionMode {
			modeItems[i].Check()
		} else {
			modeItems[i].Uncheck()
		}
	}
	if snap.AutoFocusOnPress {
		autoFocusItem.Check()
	} else {
		autoFocusItem.Uncheck()
	}
}

func handleClicks() {
	for {
		select {
		case <-toggleItem.ClickedCh:
			if state != nil {
				go state.ToggleMute()
			}
		case <-focusItem.ClickedCh:
			if state != nil {
				go func() {
					if err := state.FocusActiveTab(); err != nil {
						log.Printf("[tray] Focus call tab: %v", err)
					}
				}()
			}
		case <-autoFocusItem.ClickedCh:
			if state != nil {
				enabled := !autoFocusItem.Checked()
				go func() {
					if err := state.SetAutoFocus(enabled); err != nil {
						log.Printf("[tray] Set auto-focus: %v", err)
					}
				}()
			}
		case <-modeItems[0].ClickedCh:
			setMode(modes[0])
		case <-modeItems[1].ClickedCh:
			setMode(modes[1])
		case <-modeItems[2].ClickedCh:
			setMode(modes[2])
		case <-quitItem.ClickedCh:
			if state != nil {
				state.RequestShutdown()
			}
		}
	}
}

func setMode(mode models.InteractionMode) {
	if state == nil {
		return
	}
	go func() {
		if err := state.SetInteractionMode(mode); err != nil {
			log.Printf("[tray] Set mode %s: %v", mode, err)
		}
	}()
}
