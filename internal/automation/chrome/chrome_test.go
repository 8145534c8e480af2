package chrome

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.setDefaults()

	if c.LandingURL != defaultLandingURL || c.SendURL != defaultSendURL {
		t.Fatalf("urls = %q / %q", c.LandingURL, c.SendURL)
	}
	// Navigations must always carry a bound: an unset value may not mean
	// "wait forever".
	if c.NavTimeout != 30*time.Second {
		t.Fatalf("nav timeout = %v", c.NavTimeout)
	}
	if c.InputTimeout != 10*time.Second || c.SettleDelay != 3*time.Second {
		t.Fatalf("timeouts = %v / %v", c.InputTimeout, c.SettleDelay)
	}
	if c.ComposerSel != defaultComposerSel || c.AttachSel != defaultAttachSel ||
		c.FileInputSel != defaultFileInputSel || c.SendIconSel != defaultSendIconSel {
		t.Fatalf("selectors = %+v", c)
	}
}

func TestConfigKeepsOverrides(t *testing.T) {
	c := Config{
		NavTimeout:  time.Minute,
		ComposerSel: `div[data-tab='11']`,
	}
	c.setDefaults()
	if c.NavTimeout != time.Minute {
		t.Fatalf("nav timeout = %v", c.NavTimeout)
	}
	if c.ComposerSel != `div[data-tab='11']` {
		t.Fatalf("composer selector = %q", c.ComposerSel)
	}
	if c.AttachSel != defaultAttachSel {
		t.Fatalf("attach selector = %q", c.AttachSel)
	}
}
