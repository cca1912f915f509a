package web

import "html/template"

// clientScript drives hash-mode navigation in the browser: every fragment
// change is sent over the live channel (or /_starter/navigate while it is
// down) and the newest result is applied to the page.
const clientScript template.JS = `(function() {
    'use strict';

    var MARKER = 'data-router-controlled';
    var app = document.getElementById('app');
    var seq = 0;
    var applied = 0;
    var ws = null;
    var queue = [];
    var reconnectDelay = 1000;

    function request() {
        seq++;
        return { type: 'navigate', seq: seq, to: location.hash || '#/' };
    }

    function loading(on) {
        if (app.hasAttribute('data-spinner')) {
            app.classList.toggle('loading', on);
        }
        document.documentElement.classList.toggle('nprogress-busy', on);
    }

    function applyMeta(meta) {
        var stale = document.head.querySelectorAll('[' + MARKER + ']');
        for (var i = 0; i < stale.length; i++) {
            stale[i].parentNode.removeChild(stale[i]);
        }
        (meta || []).forEach(function(attrs) {
            var el = document.createElement('meta');
            attrs.forEach(function(a) { el.setAttribute(a.key, a.val); });
            el.setAttribute(MARKER, '');
            document.head.appendChild(el);
        });
    }

    function apply(frame) {
        if (frame.type !== 'result' || frame.seq < applied) {
            return;
        }
        applied = frame.seq;
        if (frame.seq === seq) {
            loading(false);
        }
        if (frame.outcome !== 'committed') {
            return;
        }
        document.title = frame.title;
        applyMeta(frame.meta);
        if (frame.href && frame.href !== location.hash) {
            history.replaceState(null, '', frame.href);
        }
        app.innerHTML = frame.html || '';
        window.scrollTo(frame.scroll.left, frame.scroll.top);
    }

    function navigate() {
        var req = request();
        loading(true);
        if (ws && ws.readyState === WebSocket.OPEN) {
            ws.send(JSON.stringify(req));
            return;
        }
        if (ws && ws.readyState === WebSocket.CONNECTING) {
            queue.push(req);
            return;
        }
        fetch('/_starter/navigate?to=' + encodeURIComponent(req.to), { credentials: 'same-origin' })
            .then(function(r) { return r.json(); })
            .then(function(frame) { frame.seq = req.seq; apply(frame); });
    }

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '/_starter/live');
        ws.onopen = function() {
            reconnectDelay = 1000;
            queue.splice(0).forEach(function(req) { ws.send(JSON.stringify(req)); });
        };
        ws.onmessage = function(e) {
            try { apply(JSON.parse(e.data)); } catch (err) {}
        };
        ws.onclose = function() {
            ws = null;
            setTimeout(connect, reconnectDelay);
            reconnectDelay = Math.min(reconnectDelay * 2, 30000);
        };
    }

    document.addEventListener('submit', function(e) {
        var form = e.target;
        if (form.getAttribute('action') !== '/_starter/session') {
            return;
        }
        e.preventDefault();
        var method = (form.getAttribute('data-method') || 'POST').toUpperCase();
        var body = method === 'POST' ? new URLSearchParams(new FormData(form)) : null;
        fetch('/_starter/session', { method: method, body: body, credentials: 'same-origin' })
            .then(function() { navigate(); });
    });

    window.addEventListener('hashchange', navigate);
    connect();
    navigate();
})();`
