package browser

// Element scripts shared by both engines. Each has the form (el, arg) => ...
// and returns a string.
const (
	// ScriptDispatchInputChange fires the events some form frameworks listen
	// for instead of native change semantics.
	ScriptDispatchInputChange = `(el) => {
	['input', 'change'].forEach((type) => el.dispatchEvent(new Event(type, { bubbles: true })));
	return 'ok';
}`

	// ScriptFileNames returns a JSON array of the names in el.files.
	ScriptFileNames = `(el) => JSON.stringify(Array.from(el.files || []).map((f) => f.name))`

	// ScriptDateWidgetUpdate pushes value through whichever date picker owns
	// the input and reports which one it found, or "none".
	ScriptDateWidgetUpdate = `(el, value) => {
	const $ = window.jQuery;
	if ($ && $(el).data('datepicker')) {
		$(el).datepicker('update', value);
		return 'bootstrap-datepicker';
	}
	if ($ && $.fn && $.fn.datepicker && $(el).hasClass('hasDatepicker')) {
		$(el).datepicker('setDate', value);
		return 'jquery-ui';
	}
	if (el._flatpickr) {
		el._flatpickr.setDate(value, true, 'd/m/Y');
		return 'flatpickr';
	}
	return 'none';
}`

	// ScriptSelectComponent selects value through select2 when the dropdown
	// is enhanced, otherwise through the DOM. It returns "select2", "dom" or
	// "missing" when no option carries the value.
	ScriptSelectComponent = `(el, value) => {
	const has = Array.from(el.options || []).some((o) => o.value === value);
	if (!has) {
		return 'missing';
	}
	const $ = window.jQuery;
	if ($ && $(el).data('select2')) {
		$(el).val(value).trigger('change');
		return 'select2';
	}
	el.value = value;
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return 'dom';
}`
)
