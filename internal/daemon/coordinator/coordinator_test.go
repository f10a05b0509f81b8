package coordinator

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
	"github.com/mutelink/mutelink/internal/daemon/gesture"
	"github.com/mutelink/mutelink/internal/daemon/gesture/gesturetest"
	"github.com/mutelink/mutelink/internal/models"
)

type fakeDevice struct {
	mu        sync.Mutex
	available bool
	ops       []string
}

func (d *fakeDevice) SetLED(a feedback.Appearance) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, fmt.Sprintf("led %s/%s", a.Color, a.Effect))
	return true
}

func (d *fakeDevice) PlayAnimation(frames []feedback.Frame) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, fmt.Sprintf("anim %s", frames[0].Appearance.Color))
	return true
}

func (d *fakeDevice) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

func (d *fakeDevice) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ops...)
}

func (d *fakeDevice) LastLED() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.ops) - 1; i >= 0; i-- {
		if len(d.ops[i]) > 4 && d.ops[i][:4] == "led " {
			return d.ops[i][4:]
		}
	}
	return ""
}

type fakeObservers struct {
	mu       sync.Mutex
	commands []string
	hidden   map[string]bool
	dead     map[string]bool
	sessions []models.CallSession
}

func newFakeObservers() *fakeObservers {
	return &fakeObservers{hidden: map[string]bool{}, dead: map[string]bool{}}
}

func (o *fakeObservers) SetMute(sid string, muted bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commands = append(o.commands, fmt.Sprintf("set_mute %s %v", sid, muted))
	return nil
}

func (o *fakeObservers) Focus(sid string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commands = append(o.commands, "focus "+sid)
	return nil
}

func (o *fakeObservers) Visible(sid string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.hidden[sid]
}

func (o *fakeObservers) Alive(sid string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.dead[sid]
}

func (o *fakeObservers) Sessions() []models.CallSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.CallSession(nil), o.sessions...)
}

func (o *fakeObservers) Commands() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.commands...)
}

type fakeStore struct {
	mu    sync.Mutex
	saved []models.Preferences
}

func (s *fakeStore) SavePreferences(p models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return nil
}

func (s *fakeStore) Saved() []models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Preferences(nil), s.saved...)
}

// gatedStore blocks its first save until release is closed.
type gatedStore struct {
	fakeStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) SavePreferences(p models.Preferences) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.fakeStore.SavePreferences(p)
}

type harness struct {
	c     *Coordinator
	dev   *fakeDevice
	obs   *fakeObservers
	store *fakeStore
	sched *gesturetest.Scheduler
}

func newHarness(t *testing.T, mode models.InteractionMode, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		dev:   &fakeDevice{available: true},
		obs:   newFakeObservers(),
		store: &fakeStore{},
		sched: gesturetest.New(),
	}
	opts := Options{
		Device:              h.dev,
		Observers:           h.obs,
		Store:               h.store,
		Preferences:         models.Preferences{InteractionMode: mode},
		AckFlashWithoutCall: true,
		Scheduler:           h.sched,
		ReconcileInterval:   time.Hour,
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.c = New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
	return h
}

func boolPtr(b bool) *bool { return &b }

// inCall connects the device and starts call s1 with the given mute state.
func (h *harness) inCall(muted bool) {
	h.c.DeviceConnected(models.DeviceInfo{VendorID: 0x20a0, ProductID: 0x42da, Product: "MuteMe"})
	h.c.CallStarted("s1", models.PlatformMeet)
	h.c.MuteObserved("s1", boolPtr(muted))
}

func TestScenarioToggle(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.inCall(true)

	if got := h.c.Snapshot().LED; got != feedback.PresetMutedSolid.String() {
		t.Fatalf("LED = %q, want %q", got, feedback.PresetMutedSolid)
	}
	if got := h.dev.LastLED(); got != "red/solid" {
		t.Errorf("device LED = %q, want red/solid", got)
	}

	h.c.GestureIntent(gesture.IntentToggle)
	if want := []string{"set_mute s1 false"}; !reflect.DeepEqual(h.obs.Commands(), want) {
		t.Fatalf("commands = %v, want %v", h.obs.Commands(), want)
	}
	// Mute only changes once the observer confirms it.
	if snap := h.c.Snapshot(); snap.Muted == nil || !*snap.Muted {
		t.Fatalf("muted changed before observation: %v", snap.MuteLabel())
	}

	h.c.MuteObserved("s1", boolPtr(false))
	if got := h.c.Snapshot().LED; got != feedback.PresetUnmutedSolid.String() {
		t.Errorf("LED = %q, want %q", got, feedback.PresetUnmutedSolid)
	}
	if got := h.dev.LastLED(); got != "green/solid" {
		t.Errorf("device LED = %q, want green/solid", got)
	}
}

func TestScenarioPushToTalk(t *testing.T) {
	h := newHarness(t, models.ModePushToTalk)
	h.inCall(true)
	if got := h.c.Snapshot().LED; got != feedback.PresetMutedPulsing.String() {
		t.Fatalf("LED = %q, want %q", got, feedback.PresetMutedPulsing)
	}

	h.c.TouchPressed()
	if len(h.obs.Commands()) != 0 {
		t.Fatalf("command sent before grace elapsed: %v", h.obs.Commands())
	}
	h.sched.Advance(gesture.GracePeriod)
	if want := []string{"set_mute s1 false"}; !reflect.DeepEqual(h.obs.Commands(), want) {
		t.Fatalf("commands = %v, want %v", h.obs.Commands(), want)
	}

	h.c.MuteObserved("s1", boolPtr(false))
	snap := h.c.Snapshot()
	if !snap.Hold.IsHolding || !snap.Hold.PTTArmed {
		t.Errorf("hold = %+v, want holding and armed", snap.Hold)
	}
	if snap.LED != feedback.PresetUnmutedPulsingFast.String() {
		t.Errorf("LED while holding = %q, want %q", snap.LED, feedback.PresetUnmutedPulsingFast)
	}
	if got := h.dev.LastLED(); got != "green/fast_pulse" {
		t.Errorf("device LED = %q, want green/fast_pulse", got)
	}

	h.c.TouchReleased(300 * time.Millisecond)
	want := []string{"set_mute s1 false", "set_mute s1 true"}
	if !reflect.DeepEqual(h.obs.Commands(), want) {
		t.Fatalf("commands = %v, want %v", h.obs.Commands(), want)
	}

	h.c.MuteObserved("s1", boolPtr(true))
	if got := h.c.Snapshot().LED; got != feedback.PresetMutedPulsing.String() {
		t.Errorf("LED = %q, want %q", got, feedback.PresetMutedPulsing)
	}
}

func TestRepeatedObservationIsIdempotent(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.inCall(true)

	first := h.c.Snapshot()
	writes := len(h.dev.Ops())

	h.c.MuteObserved("s1", boolPtr(true))
	second := h.c.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("snapshot changed on repeated observation:\n%+v\n%+v", first, second)
	}
	if got := len(h.dev.Ops()); got != writes {
		t.Errorf("device writes = %d, want %d", got, writes)
	}
}

func TestMuteClearedWhenCallEnds(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.inCall(false)

	h.c.CallEnded("other")
	if snap := h.c.Snapshot(); snap.ActiveCall == nil {
		t.Fatal("CallEnded for another session cleared the call")
	}

	h.c.CallEnded("s1")
	snap := h.c.Snapshot()
	if snap.ActiveCall != nil || snap.Muted != nil {
		t.Errorf("after CallEnded: call=%v muted=%v, want both nil", snap.ActiveCall, snap.Muted)
	}
	if snap.LED != feedback.PresetIdle.String() {
		t.Errorf("LED = %q, want idle", snap.LED)
	}
}

func TestObservationRules(t *testing.T) {
	h := newHarness(t, models.ModeToggle)

	h.c.MuteObserved("s1", boolPtr(true))
	if snap := h.c.Snapshot(); snap.Muted != nil {
		t.Fatalf("observation without a call set muted=%v", *snap.Muted)
	}

	h.inCall(true)
	h.c.MuteObserved("s1", nil)
	if snap := h.c.Snapshot(); snap.Muted == nil || !*snap.Muted {
		t.Errorf("nil observation changed mute to %s", snap.MuteLabel())
	}

	h.c.MuteObserved("s2", boolPtr(false))
	if snap := h.c.Snapshot(); !*snap.Muted {
		t.Error("observation from an inactive session was applied")
	}
}

func TestFirstCallWins(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.c.CallStarted("s1", models.PlatformMeet)
	h.c.CallStarted("s2", models.PlatformTeams)

	snap := h.c.Snapshot()
	if snap.ActiveCall == nil || snap.ActiveCall.SessionID != "s1" {
		t.Fatalf("active call = %+v, want s1", snap.ActiveCall)
	}
}

func TestIntentWithoutCall(t *testing.T) {
	tests := []struct {
		name     string
		ack      bool
		wantAnim bool
	}{
		{name: "ack flash", ack: true, wantAnim: true},
		{name: "no ack flash", ack: false, wantAnim: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, models.ModeToggle, func(o *Options) { o.AckFlashWithoutCall = tt.ack })
			h.c.DeviceConnected(models.DeviceInfo{})
			before := len(h.dev.Ops())

			h.c.ToggleMute()

			if cmds := h.obs.Commands(); len(cmds) != 0 {
				t.Errorf("commands = %v, want none", cmds)
			}
			ops := h.dev.Ops()[before:]
			gotAnim := len(ops) > 0 && ops[0] == "anim yellow"
			if gotAnim != tt.wantAnim {
				t.Errorf("ops after toggle = %v, want animation %v", ops, tt.wantAnim)
			}
			if tt.wantAnim && (len(ops) != 2 || ops[1] != "led blue/dim") {
				t.Errorf("steady LED not restored after flash: %v", ops)
			}
		})
	}
}

func TestToggleWithUnknownMuteIsDropped(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.c.DeviceConnected(models.DeviceInfo{})
	h.c.CallStarted("s1", models.PlatformTeams)

	h.c.ToggleMute()
	if cmds := h.obs.Commands(); len(cmds) != 0 {
		t.Errorf("commands = %v, want none", cmds)
	}

	// Push-to-talk intents do not need the current state.
	h.c.GestureIntent(gesture.IntentEndTalk)
	if want := []string{"set_mute s1 true"}; !reflect.DeepEqual(h.obs.Commands(), want) {
		t.Errorf("commands = %v, want %v", h.obs.Commands(), want)
	}
}

func TestDisconnectAbandonsHold(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.inCall(true)

	h.c.TouchPressed()
	if !h.c.Snapshot().Hold.IsHolding {
		t.Fatal("press did not start a hold")
	}
	h.c.DeviceDisconnected()
	if snap := h.c.Snapshot(); snap.Hold.IsHolding || snap.LED != feedback.PresetOff.String() {
		t.Fatalf("after disconnect hold=%+v LED=%q", snap.Hold, snap.LED)
	}
	h.c.DeviceConnected(models.DeviceInfo{})
	h.c.TouchReleased(100 * time.Millisecond)

	if cmds := h.obs.Commands(); len(cmds) != 0 {
		t.Errorf("commands = %v, want none", cmds)
	}
}

func TestConnectAnimationPlaysOnce(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	info := models.DeviceInfo{VendorID: 0x20a0, ProductID: 0x42da, Product: "MuteMe"}

	h.c.DeviceConnected(info)
	h.c.DeviceConnected(info)

	want := []string{"anim purple", "led blue/dim"}
	if got := h.dev.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("device ops = %v, want %v", got, want)
	}
	snap := h.c.Snapshot()
	if snap.Device == nil || snap.Device.Product != "MuteMe" {
		t.Errorf("snapshot device = %+v", snap.Device)
	}

	// Reconnect after a disconnect rewrites the LED even though the preset
	// is unchanged.
	h.c.DeviceDisconnected()
	h.c.DeviceConnected(info)
	want = append(want, "anim purple", "led blue/dim")
	if got := h.dev.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("device ops = %v, want %v", got, want)
	}
}

func TestAutoFocusOnPress(t *testing.T) {
	tests := []struct {
		name      string
		autoFocus bool
		hidden    bool
		want      []string
	}{
		{name: "hidden tab is focused", autoFocus: true, hidden: true, want: []string{"focus s1"}},
		{name: "visible tab is left alone", autoFocus: true, hidden: false},
		{name: "disabled", autoFocus: false, hidden: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, models.ModeToggle, func(o *Options) {
				o.Preferences.AutoFocusOnPress = tt.autoFocus
			})
			h.obs.hidden["s1"] = tt.hidden
			h.inCall(true)

			h.c.TouchPressed()
			if got := h.obs.Commands(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("commands = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreferences(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.inCall(true)

	if err := h.c.SetInteractionMode(models.ModeSmart); err != nil {
		t.Fatalf("SetInteractionMode() error = %v", err)
	}
	if err := h.c.SetAutoFocus(true); err != nil {
		t.Fatalf("SetAutoFocus() error = %v", err)
	}
	if err := h.c.SetInteractionMode("loud"); err == nil {
		t.Error("SetInteractionMode(invalid) succeeded")
	}

	snap := h.c.Snapshot()
	if snap.InteractionMode != models.ModeSmart || !snap.AutoFocusOnPress {
		t.Errorf("snapshot prefs = %s/%v", snap.InteractionMode, snap.AutoFocusOnPress)
	}
	if snap.LED != feedback.PresetMutedPulsing.String() {
		t.Errorf("LED = %q, want %q after switching to smart", snap.LED, feedback.PresetMutedPulsing)
	}

	want := []models.Preferences{
		{InteractionMode: models.ModeSmart},
		{InteractionMode: models.ModeSmart, AutoFocusOnPress: true},
	}
	if !reflect.DeepEqual(h.store.saved, want) {
		t.Errorf("saved = %+v, want %+v", h.store.saved, want)
	}

	h.c.ApplyPreferences(models.Preferences{InteractionMode: models.ModePushToTalk})
	if got := h.c.Snapshot().InteractionMode; got != models.ModePushToTalk {
		t.Errorf("mode after ApplyPreferences = %s", got)
	}
	if len(h.store.saved) != 2 {
		t.Errorf("ApplyPreferences persisted: %+v", h.store.saved)
	}
}

func TestOverlappingPreferenceChangesPersistNewest(t *testing.T) {
	store := newGatedStore()
	h := newHarness(t, models.ModeToggle, func(o *Options) { o.Store = store })

	errs := make(chan error, 2)
	go func() { errs <- h.c.SetInteractionMode(models.ModeSmart) }()
	<-store.entered

	go func() { errs <- h.c.SetAutoFocus(true) }()
	deadline := time.After(2 * time.Second)
	for !h.c.Snapshot().AutoFocusOnPress {
		select {
		case <-deadline:
			t.Fatal("second preference change never applied")
		case <-time.After(time.Millisecond):
		}
	}

	close(store.release)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("preference change error = %v", err)
		}
	}

	saved := store.Saved()
	if len(saved) == 0 {
		t.Fatal("nothing persisted")
	}
	want := models.Preferences{InteractionMode: models.ModeSmart, AutoFocusOnPress: true}
	if got := saved[len(saved)-1]; got != want {
		t.Errorf("last persisted = %+v, want %+v (all saves: %+v)", got, want, saved)
	}
	snap := h.c.Snapshot()
	if snap.InteractionMode != want.InteractionMode || snap.AutoFocusOnPress != want.AutoFocusOnPress {
		t.Errorf("in-memory prefs = %s/%v", snap.InteractionMode, snap.AutoFocusOnPress)
	}
}

func TestSupersededPreferencesAreNotWritten(t *testing.T) {
	store := &fakeStore{}
	c := New(Options{Store: store})

	newer := models.Preferences{InteractionMode: models.ModeSmart, AutoFocusOnPress: true}
	older := models.Preferences{InteractionMode: models.ModeSmart}
	if err := c.persist(newer, 2); err != nil {
		t.Fatalf("persist(newer) error = %v", err)
	}
	if err := c.persist(older, 1); err != nil {
		t.Fatalf("persist(older) error = %v", err)
	}
	if got := store.Saved(); !reflect.DeepEqual(got, []models.Preferences{newer}) {
		t.Errorf("saved = %+v, want only the newer value", got)
	}
}

func TestRequestFocusActiveTab(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	if err := h.c.RequestFocusActiveTab(); err != ErrNoActiveCall {
		t.Errorf("RequestFocusActiveTab() without call error = %v, want %v", err, ErrNoActiveCall)
	}
	h.inCall(false)
	if err := h.c.RequestFocusActiveTab(); err != nil {
		t.Fatalf("RequestFocusActiveTab() error = %v", err)
	}
	if want := []string{"focus s1"}; !reflect.DeepEqual(h.obs.Commands(), want) {
		t.Errorf("commands = %v, want %v", h.obs.Commands(), want)
	}
}

func TestReconcile(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	h.inCall(true)

	h.obs.mu.Lock()
	h.obs.dead["s1"] = true
	h.obs.sessions = []models.CallSession{{SessionID: "s2", Platform: models.PlatformTeams}}
	h.obs.mu.Unlock()

	h.c.transition(h.c.reconcile)
	snap := h.c.Snapshot()
	if snap.ActiveCall == nil || snap.ActiveCall.SessionID != "s2" {
		t.Fatalf("active call = %+v, want adopted s2", snap.ActiveCall)
	}
	if snap.Muted != nil {
		t.Errorf("adopted call muted = %v, want unknown", *snap.Muted)
	}

	h.dev.mu.Lock()
	h.dev.available = false
	h.dev.mu.Unlock()
	h.c.transition(h.c.reconcile)
	if h.c.Snapshot().DeviceConnected {
		t.Error("device still connected after it became unavailable")
	}

	h.dev.mu.Lock()
	h.dev.available = true
	h.dev.mu.Unlock()
	h.c.transition(h.c.reconcile)
	if !h.c.Snapshot().DeviceConnected {
		t.Error("device not reconnected after it became available")
	}
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, models.ModeToggle)
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.c.Subscribe(ctx)

	first := recv(t, ch)
	if first.Seq == 0 {
		t.Error("initial snapshot has zero seq")
	}

	h.c.CallStarted("s1", models.PlatformMeet)
	snap := recv(t, ch)
	if snap.ActiveCall == nil || snap.Seq <= first.Seq {
		t.Errorf("snapshot after call start = %+v", snap)
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed after cancel")
		}
	}
}

func recv(t *testing.T, ch <-chan models.Snapshot) models.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
	return models.Snapshot{}
}

func TestOperationsAfterStop(t *testing.T) {
	c := New(Options{Device: &fakeDevice{}, Observers: newFakeObservers(), ReconcileInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	c.CallStarted("s1", models.PlatformMeet)
	cancel()
	<-done

	if err := c.SetAutoFocus(true); err != ErrStopped {
		t.Errorf("SetAutoFocus() after stop error = %v, want %v", err, ErrStopped)
	}
	if snap := c.Snapshot(); snap.ActiveCall == nil {
		t.Error("Snapshot() after stop lost state")
	}
	if _, ok := <-c.Subscribe(context.Background()); ok {
		t.Error("Subscribe() after stop returned an open channel")
	}
}
