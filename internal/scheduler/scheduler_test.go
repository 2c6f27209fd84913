package scheduler

import (
	"os"
	"testing"
)

func TestDueRemindersFireOnceADay(t *testing.T) {
	fired := 0
	for hour := 0; hour < 24; hour++ {
		if shouldSendDueReminders(hour, DefaultNotificationStartHour, DefaultNotificationEndHour, DefaultDueReminderHour) {
			fired++
			if hour != DefaultDueReminderHour {
				t.Errorf("reminder fired at hour %d, want only %d", hour, DefaultDueReminderHour)
			}
		}
	}
	if fired != 1 {
		t.Errorf("reminder fired %d times over a day, want exactly 1", fired)
	}
}

func TestDueRemindersRespectQuietHours(t *testing.T) {
	// Reminder hour outside the notification window stays silent
	if shouldSendDueReminders(6, DefaultNotificationStartHour, DefaultNotificationEndHour, 6) {
		t.Error("reminder fired before the notification window opens")
	}
	if shouldSendDueReminders(23, DefaultNotificationStartHour, DefaultNotificationEndHour, 23) {
		t.Error("reminder fired after the notification window closes")
	}
}

func TestDueReminderHourOverride(t *testing.T) {
	t.Cleanup(func() { os.Unsetenv("DUE_REMINDER_HOUR") })

	os.Setenv("DUE_REMINDER_HOUR", "19")
	if got := dueReminderHour(); got != 19 {
		t.Errorf("dueReminderHour() = %d, want 19", got)
	}

	os.Setenv("DUE_REMINDER_HOUR", "not-an-hour")
	if got := dueReminderHour(); got != DefaultDueReminderHour {
		t.Errorf("dueReminderHour() with bad value = %d, want default %d", got, DefaultDueReminderHour)
	}

	os.Setenv("DUE_REMINDER_HOUR", "25")
	if got := dueReminderHour(); got != DefaultDueReminderHour {
		t.Errorf("dueReminderHour() out of range = %d, want default %d", got, DefaultDueReminderHour)
	}
}
